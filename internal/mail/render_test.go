package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(Body{
		Greeting:       "Hi Ana,",
		Text:           "Line one\nline two\n\n\nSecond <b>para</b>",
		UnsubscribeURL: "https://pray.example/newsletter/unsubscribe?token=a&b",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<p>Hi Ana,</p>")
	assert.Contains(t, html, "<p>Line one<br>line two</p>")
	assert.Contains(t, html, "Second &lt;b&gt;para&lt;/b&gt;")
	assert.Contains(t, html, `href="https://pray.example/newsletter/unsubscribe?token=a&amp;b"`)
	assert.Equal(t, 1, strings.Count(html, "Unsubscribe<"))
}

func TestRenderHTML_NoOptionalParts(t *testing.T) {
	html, err := RenderHTML(Body{Text: "only"})
	require.NoError(t, err)
	assert.NotContains(t, html, "href")
	assert.Contains(t, html, "<p>only</p>")
}
