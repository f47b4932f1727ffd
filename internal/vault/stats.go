package vault

import (
	"sort"
	"time"

	"github.com/runevault/ansuz/internal/models"
)

// Stats summarizes the current snapshot.
type Stats struct {
	VaultPath      string         `json:"vault_path"`
	TotalNotes     int            `json:"total_notes"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	TotalTags      int            `json:"total_tags"`
	AllTags        []string       `json:"all_tags"`
	NoteTypes      map[string]int `json:"note_types"`
	SkippedFiles   int            `json:"skipped_files"`
	BuiltAt        time.Time      `json:"built_at"`
}

// GraphNode is a vertex in the link graph. Missing marks a dangling link
// target with no backing note.
type GraphNode struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// GraphEdge is a directed link between two notes, deduplicated per
// (source, target) pair.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Stats computes vault statistics from the current snapshot.
func (ix *Index) Stats() (*Stats, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		VaultPath: ix.store.Root(),
		NoteTypes: make(map[string]int),
		BuiltAt:   s.BuiltAt,
	}
	st.TotalNotes = len(s.Notes)
	st.SkippedFiles = len(s.Report.Skipped)

	for _, n := range s.Notes {
		st.TotalSizeBytes += n.SizeBytes

		noteType := "note"
		if v, ok := n.Frontmatter["type"]; ok && v.Kind == models.ValueString && v.Str != "" {
			noteType = v.Str
		}
		st.NoteTypes[noteType]++
	}

	st.AllTags = make([]string, 0, len(s.TagIndex))
	for tag := range s.TagIndex {
		st.AllTags = append(st.AllTags, tag)
	}
	sort.Strings(st.AllTags)
	st.TotalTags = len(st.AllTags)

	return st, nil
}

// Graph returns the link graph of the current snapshot: one node per
// note plus one "missing" node per dangling link target, and one edge
// per distinct (source, target) pair.
func (ix *Index) Graph() ([]GraphNode, []GraphEdge, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, 0, len(s.Notes))
	for _, name := range sortedNames(s.Notes) {
		nodes = append(nodes, GraphNode{ID: name, Title: s.Notes[name].Title})
	}

	missing := make([]string, 0)
	for target := range s.Backlinks {
		if _, ok := s.Notes[target]; !ok {
			missing = append(missing, target)
		}
	}
	sort.Strings(missing)
	for _, target := range missing {
		nodes = append(nodes, GraphNode{ID: target, Missing: true})
	}

	var edges []GraphEdge
	for _, name := range sortedNames(s.Notes) {
		seen := make(map[string]struct{})
		for _, target := range s.Notes[name].LinkTargets() {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			edges = append(edges, GraphEdge{Source: name, Target: target})
		}
	}
	return nodes, edges, nil
}
