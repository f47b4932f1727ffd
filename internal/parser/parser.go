// Package parser extracts frontmatter, wikilinks, tags, headings, and
// content blocks from Markdown note text. All functions are pure: raw text
// in, structured values out, no filesystem access.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runevault/ansuz/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	// A tag is '#' followed by a word-character run, not preceded by a word
	// character. This keeps URL fragments (http://x.com#frag) and heading
	// markers out.
	tagRe     = regexp.MustCompile(`(?:^|[^0-9A-Za-z_#])#([A-Za-z][0-9A-Za-z_/-]*)`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	anchorStripRe   = regexp.MustCompile("[*_`]")
	anchorNonWordRe = regexp.MustCompile(`[^\w\s-]`)
	anchorDashRe    = regexp.MustCompile(`[-\s]+`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]models.Value
	Body        string
	Title       string
	Tags        []string
	Links       []models.Link
	Headings    []models.Heading
	Blocks      []models.Block
}

// Parse extracts all structured content from raw Markdown bytes.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        extractTags(body, fm),
		Links:       extractLinks(body),
		Headings:    extractHeadings(body),
		Blocks:      extractBlocks(body),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found, or the YAML is invalid,
// the entire content is body and the frontmatter is nil — never an error.
func splitFrontmatter(data []byte) (map[string]models.Value, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var raw map[string]any
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		return nil, string(data)
	}
	if raw == nil {
		return nil, body
	}

	fm := make(map[string]models.Value, len(raw))
	for k, v := range raw {
		fm[k] = convertValue(v)
	}
	return fm, body
}

// convertValue maps a loosely-typed YAML value onto the tagged Value variant.
// Nested mappings have no scalar representation and collapse to null.
func convertValue(v any) models.Value {
	switch t := v.(type) {
	case nil:
		return models.NullValue()
	case string:
		return models.StringValue(t)
	case time.Time:
		return models.StringValue(t.Format(time.RFC3339))
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			sv := convertValue(item)
			if sv.Kind == models.ValueString {
				items = append(items, sv.Str)
			}
		}
		return models.ListValue(items)
	case map[string]any:
		return models.NullValue()
	default:
		return models.StringValue(fmt.Sprint(t))
	}
}

// extractLinks returns every wikilink occurrence in body order. Duplicates
// and self-links are preserved; a heading or block suffix ([[Name#h]],
// [[Name#^id]]) is stripped from the target but kept on the Link.
func extractLinks(body string) []models.Link {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	var out []models.Link
	for _, m := range matches {
		raw := m[1]

		target := raw
		display := raw
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
			display = raw[i+1:]
		}

		heading := ""
		if i := strings.Index(target, "#"); i >= 0 {
			heading = strings.TrimPrefix(target[i+1:], "^")
			target = target[:i]
		}

		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		out = append(out, models.Link{
			Target:  target,
			Display: strings.TrimSpace(display),
			Heading: strings.TrimSpace(heading),
		})
	}
	return out
}

// extractTags collects the union of frontmatter "tags" values and inline
// #tags from the body, deduplicated and sorted.
func extractTags(body string, fm map[string]models.Value) []string {
	seen := make(map[string]struct{})

	if v, ok := fm["tags"]; ok {
		for _, t := range v.Strings() {
			t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
			if t != "" {
				seen[t] = struct{}{}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		seen[m[1]] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// extractHeadings returns all Markdown headings with line numbers and anchors.
func extractHeadings(body string) []models.Heading {
	var out []models.Heading
	for i, line := range strings.Split(body, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		out = append(out, models.Heading{
			Level:  len(m[1]),
			Text:   text,
			Line:   i + 1,
			Anchor: anchor(text),
		})
	}
	return out
}

// anchor builds an Obsidian-style anchor from heading text: formatting
// stripped, lowercased, word runs joined with hyphens.
func anchor(text string) string {
	s := anchorStripRe.ReplaceAllString(text, "")
	s = anchorNonWordRe.ReplaceAllString(strings.ToLower(s), "")
	s = anchorDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]models.Value, body string) string {
	if v, ok := fm["title"]; ok && v.Kind == models.ValueString && v.Str != "" {
		return v.Str
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
