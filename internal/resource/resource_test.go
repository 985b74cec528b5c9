package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raysh454/eyes/internal/resource"
)

func TestEncodeURIComponent(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"http://x/a.png":                 "http%3A%2F%2Fx%2Fa.png",
		"https://cdn.test/a b.css?v=1&x": "https%3A%2F%2Fcdn.test%2Fa%20b.css%3Fv%3D1%26x",
		"keep-_.!~*'()":                  "keep-_.!~*'()",
		"a+b#frag":                       "a%2Bb%23frag",
		"ünï":                            "%C3%BCn%C3%AF",
	}
	for in, want := range tests {
		assert.Equal(t, want, resource.EncodeURIComponent(in), "input %q", in)
	}
}

func TestMetaOf_KeepsOrderAndDropsValue(t *testing.T) {
	t.Parallel()
	got := resource.MetaOf([]resource.Resource{
		{URL: "http://x/b.css", Type: "text/css", Value: []byte("b{}")},
		{URL: "http://x/a.png", Type: "image/png", Value: []byte{1}},
	})
	assert.Equal(t, []resource.BlobData{
		{URL: "http://x/b.css", Type: "text/css"},
		{URL: "http://x/a.png", Type: "image/png"},
	}, got)
}

func TestCommand(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "resource/http%3A%2F%2Fx%2Fa.png", resource.Command("http://x/a.png"))
}
