// Package models defines the domain types for Ansuz.
package models

import "time"

// ValueKind discriminates the variants of a frontmatter Value.
type ValueKind int

const (
	// ValueNull marks a key that is present but carries no usable scalar.
	ValueNull ValueKind = iota
	// ValueString is a single scalar rendered as a string.
	ValueString
	// ValueList is a list of scalars rendered as strings.
	ValueList
)

// Value is a tagged frontmatter value: string, list-of-string, or null.
// Consumers switch on Kind instead of type-asserting an untyped blob.
type Value struct {
	Kind ValueKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	List []string  `json:"list,omitempty"`
}

// StringValue builds a string-kind Value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// ListValue builds a list-kind Value.
func ListValue(items []string) Value { return Value{Kind: ValueList, List: items} }

// NullValue builds a null-kind Value.
func NullValue() Value { return Value{Kind: ValueNull} }

// Strings flattens a Value into its string members regardless of kind.
func (v Value) Strings() []string {
	switch v.Kind {
	case ValueString:
		return []string{v.Str}
	case ValueList:
		return v.List
	default:
		return nil
	}
}

// Link is one wikilink occurrence in a note body. Target is the bare note
// name (alias and heading/block suffix already stripped off).
type Link struct {
	Target  string `json:"target"`
	Display string `json:"display"`
	Heading string `json:"heading,omitempty"`
}

// Heading is a Markdown heading with its position and Obsidian-style anchor.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Line   int    `json:"line"`
	Anchor string `json:"anchor"`
}

// Block types produced by body segmentation.
const (
	BlockParagraph    = "paragraph"
	BlockList         = "list"
	BlockNumberedList = "numbered_list"
	BlockQuote        = "quote"
	BlockHeading      = "heading"
	BlockCode         = "code"
)

// Block is a contiguous run of body lines of one structural type.
type Block struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Language  string `json:"language,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Note represents one parsed Markdown file in the vault. Name is the
// filename stem and is unique per snapshot; Links keeps every wikilink
// occurrence in body order, duplicates and self-links included.
type Note struct {
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	RawContent  string           `json:"-"`
	Body        string           `json:"body,omitempty"`
	Frontmatter map[string]Value `json:"frontmatter,omitempty"`
	Tags        []string         `json:"tags"`
	Links       []Link           `json:"links"`
	Headings    []Heading        `json:"headings,omitempty"`
	Blocks      []Block          `json:"-"`
	Checksum    string           `json:"checksum"`
	ModifiedAt  time.Time        `json:"modified_at"`
	WordCount   int              `json:"word_count"`
	SizeBytes   int64            `json:"size_bytes"`
}

// LinkTargets returns the ordered sequence of outgoing link targets,
// duplicates preserved.
func (n *Note) LinkTargets() []string {
	if len(n.Links) == 0 {
		return nil
	}
	out := make([]string, len(n.Links))
	for i, l := range n.Links {
		out[i] = l.Target
	}
	return out
}

// HasTag reports whether the note carries the exact tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NoteMetadata is a lightweight file descriptor returned by storage listings.
type NoteMetadata struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}
