package capture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/eyes/internal/capture"
)

func TestBuildCDT_DocumentFirstChildrenBeforeParents(t *testing.T) {
	t.Parallel()
	cdt, err := capture.BuildCDT(`<!DOCTYPE html><html><head><title>T</title></head><body class="x">hi<!-- c --></body></html>`)
	require.NoError(t, err)

	doc := cdt[0]
	assert.Equal(t, capture.NodeDocument, doc.NodeType)
	require.Len(t, doc.ChildNodeIndexes, 2)

	doctype := cdt[doc.ChildNodeIndexes[0]]
	assert.Equal(t, capture.NodeDocumentType, doctype.NodeType)
	assert.Equal(t, "html", doctype.NodeName)

	html := cdt[doc.ChildNodeIndexes[1]]
	assert.Equal(t, "HTML", html.NodeName)

	for i, n := range cdt {
		for _, child := range n.ChildNodeIndexes {
			if i == 0 {
				continue
			}
			assert.Less(t, child, i, "child %d of node %d must come first", child, i)
		}
	}

	var body *capture.CDTNode
	for i := range cdt {
		if cdt[i].NodeName == "BODY" {
			body = &cdt[i]
		}
	}
	require.NotNil(t, body)
	assert.Equal(t, []capture.Attribute{{Name: "class", Value: "x"}}, body.Attributes)
	require.Len(t, body.ChildNodeIndexes, 1, "comment must be dropped")
	text := cdt[body.ChildNodeIndexes[0]]
	assert.Equal(t, capture.NodeText, text.NodeType)
	assert.Equal(t, "hi", text.NodeValue)
}

func TestBuildCDT_EmptyDocument(t *testing.T) {
	t.Parallel()
	cdt, err := capture.BuildCDT("")
	require.NoError(t, err)
	// the parser synthesizes html/head/body
	assert.GreaterOrEqual(t, len(cdt), 4)
	assert.Equal(t, capture.NodeDocument, cdt[0].NodeType)
}
