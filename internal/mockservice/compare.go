package mockservice

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/eyes/internal/capture"
)

// Chunk is one changed run of text between a baseline and a check.
type Chunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// compareText diffs the baseline text against the checked text and returns
// the non-blank changes. No chunks means the check matches.
func compareText(base, head string) []Chunk {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(base, head, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := make([]Chunk, 0)
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		case diffmatchpatch.DiffEqual:
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			chunks = append(chunks, Chunk{Type: chunkType, Content: d.Text})
		}
	}
	return chunks
}

// renderText flattens a CDT into the text the mock compares: one line per
// element open tag (with attributes) and per non-blank text node, in
// document order.
func renderText(cdt capture.CDT) string {
	if len(cdt) == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(i, depth int)
	walk = func(i, depth int) {
		if i < 0 || i >= len(cdt) || depth > 512 {
			return
		}
		n := cdt[i]
		switch n.NodeType {
		case capture.NodeElement:
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(n.NodeName)
			for _, a := range n.Attributes {
				b.WriteString(" " + a.Name + "=" + a.Value)
			}
			b.WriteByte('\n')
		case capture.NodeText:
			if t := strings.TrimSpace(n.NodeValue); t != "" {
				b.WriteString(strings.Repeat("  ", depth))
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
		for _, c := range n.ChildNodeIndexes {
			walk(c, depth+1)
		}
	}
	walk(0, -1)
	return b.String()
}
