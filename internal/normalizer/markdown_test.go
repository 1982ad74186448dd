package normalizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faqMarkdown = `Intro paragraph about the department.

# Admissions

Apply by **March 1**.

- Transcripts
- Two letters

## Contact

| Name | Email |
|------|-------|
| Office | cs@gmu.edu |

# Advising

` + "```" + `
room 4300
` + "```" + `
`

func TestMarkdownParser_Parse(t *testing.T) {
	v := NewMarkdownParser().Parse([]byte(faqMarkdown), "grad-faq.md")
	require.Equal(t, KindMapping, v.Kind())

	entries := v.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, "Grad Faq", entries[0].Key)
	assert.Equal(t, []Value{String("Intro paragraph about the department.")}, entries[0].Value.Items())

	assert.Equal(t, "Admissions", entries[1].Key)
	assert.Equal(t, []Value{
		String("Apply by March 1."),
		String("Transcripts"),
		String("Two letters"),
	}, entries[1].Value.Items())

	assert.Equal(t, "Admissions Contact", entries[2].Key)
	assert.Equal(t, []Value{
		String("Name | Email"),
		String("Office | cs@gmu.edu"),
	}, entries[2].Value.Items())

	assert.Equal(t, "Advising", entries[3].Key)
	assert.Equal(t, []Value{String("room 4300")}, entries[3].Value.Items())
}

func TestMarkdownParser_Normalize(t *testing.T) {
	record := NewMarkdownParser().Parse([]byte(faqMarkdown), "grad-faq.md")

	chunks := New(DefaultChunkSize).Normalize(context.Background(), record)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "admissions contact: office csgmuedu")
	assert.Contains(t, chunks[0], "admissions: apply march 1")
}

func TestMarkdownParser_Empty(t *testing.T) {
	v := NewMarkdownParser().Parse(nil, "empty.md")
	assert.Equal(t, KindMapping, v.Kind())
	assert.Empty(t, v.Entries())
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Grad Faq", titleFromFilename("records/grad-faq.md"))
	assert.Equal(t, "Contact Info", titleFromFilename("contact_info.md"))
}
