package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Day 1"}]},
    {"type": "paragraph", "content": [
      {"type": "text", "text": "Pray for "},
      {"type": "text", "text": "the city", "marks": [{"type": "bold"}]},
      {"type": "text", "text": "  "}
    ]},
    {"type": "verse", "attrs": {"reference": "John 3:16"}, "content": [{"type": "text", "text": "For God so loved"}]}
  ]
}`

func TestNode_TranslatableTextSkipsVerses(t *testing.T) {
	doc, err := ParseDoc([]byte(sampleDoc))
	require.NoError(t, err)

	var texts []string
	for _, n := range doc.TranslatableText() {
		texts = append(texts, n.Text)
	}
	assert.Equal(t, []string{"Day 1", "Pray for ", "the city"}, texts)

	verses := doc.Verses()
	require.Len(t, verses, 1)
	assert.Equal(t, "John 3:16", verses[0].Reference())
}

func TestNode_RoundTripKeepsMarksAndVerseText(t *testing.T) {
	doc, err := ParseDoc([]byte(sampleDoc))
	require.NoError(t, err)

	doc.TranslatableText()[2].Text = "a cidade"
	doc.Verses()[0].SetVerseText("Porque Deus amou", "pt")

	raw, err := doc.Marshal()
	require.NoError(t, err)

	again, err := ParseDoc(raw)
	require.NoError(t, err)
	para := again.Content[1]
	assert.Equal(t, "a cidade", para.Content[1].Text)
	assert.JSONEq(t, `[{"type":"bold"}]`, string(para.Content[1].Marks))

	verse := again.Verses()[0]
	assert.Equal(t, "pt", verse.Attrs["language"])
	assert.Equal(t, "Porque Deus amou", verse.Content[0].Text)
}

func TestParseDoc_Invalid(t *testing.T) {
	_, err := ParseDoc([]byte(`{"type":`))
	assert.Error(t, err)
}
