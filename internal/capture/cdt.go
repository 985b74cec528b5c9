package capture

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DOM node types as numbered by the browser DOM.
const (
	NodeElement      = 1
	NodeText         = 3
	NodeDocument     = 9
	NodeDocumentType = 10
)

// CDTNode is one entry in a flat DOM tree. Children are referenced by index
// into the enclosing slice.
type CDTNode struct {
	NodeType         int         `json:"nodeType"`
	NodeName         string      `json:"nodeName,omitempty"`
	NodeValue        string      `json:"nodeValue,omitempty"`
	Attributes       []Attribute `json:"attributes,omitempty"`
	ChildNodeIndexes []int       `json:"childNodeIndexes,omitempty"`
	PublicID         string      `json:"publicId,omitempty"`
	SystemID         string      `json:"systemId,omitempty"`
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CDT is the structural DOM representation the service reconstructs pages from.
type CDT []CDTNode

// BuildCDT parses a serialized document into a CDT. The document node sits at
// index 0 and every child is emitted before its parent. Comments and
// processing instructions are dropped.
func BuildCDT(doc string) (CDT, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	nodes := CDT{{NodeType: NodeDocument}}
	nodes[0].ChildNodeIndexes = appendChildren(&nodes, root)
	return nodes, nil
}

func appendChildren(nodes *CDT, parent *html.Node) []int {
	indexes := []int{}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		var node CDTNode
		switch c.Type {
		case html.ElementNode:
			node = CDTNode{
				NodeType:         NodeElement,
				NodeName:         strings.ToUpper(c.Data),
				Attributes:       attributes(c),
				ChildNodeIndexes: appendChildren(nodes, c),
			}
		case html.TextNode:
			node = CDTNode{NodeType: NodeText, NodeValue: c.Data}
		case html.DoctypeNode:
			node = CDTNode{NodeType: NodeDocumentType, NodeName: c.Data}
			for _, a := range c.Attr {
				switch a.Key {
				case "public":
					node.PublicID = a.Val
				case "system":
					node.SystemID = a.Val
				}
			}
		default:
			continue
		}
		*nodes = append(*nodes, node)
		indexes = append(indexes, len(*nodes)-1)
	}
	return indexes
}

func attributes(n *html.Node) []Attribute {
	if len(n.Attr) == 0 {
		return []Attribute{}
	}
	out := make([]Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, Attribute{Name: name, Value: a.Val})
	}
	return out
}
