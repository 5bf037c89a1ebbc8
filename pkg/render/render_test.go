package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "🎨 Drawing, please wait...", "🎨 Drawing, please wait..."},
		{"inline", "**bold** and `code`", "<strong>bold</strong> and <code>code</code>"},
		{"list", "- one\n- two", "• one\n• two"},
		{"line breaks", "line1\nline2", "line1\nline2"},
		{"escaping", "a < b & c", "a &lt; b &amp; c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToHTMLFlattensBlocks(t *testing.T) {
	got := ToHTML("# Title\n\n**Presets**\n- `a first`\n\n<script>alert(1)</script>")

	assert.Contains(t, got, "<b>Title</b>")
	assert.Contains(t, got, "• <code>a first</code>")
	assert.NotContains(t, got, "<p>")
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "\n\n\n")
}
