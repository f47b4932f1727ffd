// Package flashcard extracts study-prompt material from parsed notes:
// heading prompts, definition sentences, list items, and quotes.
package flashcard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/runevault/ansuz/internal/models"
)

// Content types selectable by callers.
const (
	TypeHeading    = "headings"
	TypeDefinition = "definitions"
	TypeList       = "lists"
	TypeQuote      = "quotes"
)

// DefaultTypes is the extraction set used when the caller picks none.
var DefaultTypes = []string{TypeHeading, TypeDefinition, TypeList, TypeQuote}

// Candidate is one piece of note content suitable for a flashcard.
type Candidate struct {
	Type       string `json:"type"`
	Question   string `json:"question,omitempty"`
	Content    string `json:"content,omitempty"`
	Context    string `json:"context,omitempty"`
	SourceNote string `json:"source_note"`
	SourceLine int    `json:"source_line,omitempty"`
}

var (
	definitionRe  = regexp.MustCompile(`(?i)\b(is|are|means|refers to|defined as)\b`)
	listMarkerRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s*`)
	quotePrefixRe = regexp.MustCompile(`(?m)^\s*>\s*`)
)

// Extract pulls flashcard candidates of the requested types from a note.
// Unknown types are an error so callers notice typos instead of getting
// silently empty results.
func Extract(note *models.Note, types []string) ([]Candidate, error) {
	if len(types) == 0 {
		types = DefaultTypes
	}
	want := make(map[string]struct{}, len(types))
	for _, ct := range types {
		switch ct {
		case TypeHeading, TypeDefinition, TypeList, TypeQuote:
			want[ct] = struct{}{}
		default:
			return nil, fmt.Errorf("flashcard: unknown content type %q", ct)
		}
	}

	var out []Candidate

	if _, ok := want[TypeHeading]; ok {
		for _, h := range note.Headings {
			// Only H1-H3 make sensible prompts.
			if h.Level > 3 {
				continue
			}
			out = append(out, Candidate{
				Type:       TypeHeading,
				Question:   fmt.Sprintf("What is covered under: %s?", h.Text),
				Context:    h.Text,
				SourceNote: note.Name,
				SourceLine: h.Line,
			})
		}
	}

	if _, ok := want[TypeDefinition]; ok {
		out = append(out, definitions(note)...)
	}

	if _, ok := want[TypeList]; ok {
		out = append(out, listItems(note)...)
	}

	if _, ok := want[TypeQuote]; ok {
		for _, b := range note.Blocks {
			if b.Type != models.BlockQuote {
				continue
			}
			out = append(out, Candidate{
				Type:       TypeQuote,
				Content:    quotePrefixRe.ReplaceAllString(b.Content, ""),
				SourceNote: note.Name,
				SourceLine: b.StartLine,
			})
		}
	}

	return out, nil
}

// definitions finds definition-shaped sentences in paragraph blocks.
func definitions(note *models.Note) []Candidate {
	var out []Candidate
	for _, b := range note.Blocks {
		if b.Type != models.BlockParagraph || !definitionRe.MatchString(b.Content) {
			continue
		}
		for _, sentence := range strings.Split(b.Content, ".") {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" || !definitionRe.MatchString(sentence) {
				continue
			}
			out = append(out, Candidate{
				Type:       TypeDefinition,
				Content:    sentence,
				SourceNote: note.Name,
				SourceLine: b.StartLine,
			})
		}
	}
	return out
}

// listItems collects meaningful (longer than three words) list entries.
func listItems(note *models.Note) []Candidate {
	var out []Candidate
	for _, b := range note.Blocks {
		if b.Type != models.BlockList && b.Type != models.BlockNumberedList {
			continue
		}
		for _, line := range strings.Split(b.Content, "\n") {
			item := listMarkerRe.ReplaceAllString(line, "")
			item = strings.TrimSpace(item)
			if len(strings.Fields(item)) <= 3 {
				continue
			}
			out = append(out, Candidate{
				Type:       TypeList,
				Content:    item,
				Context:    fmt.Sprintf("Item from list in %s", note.Name),
				SourceNote: note.Name,
			})
		}
	}
	return out
}
