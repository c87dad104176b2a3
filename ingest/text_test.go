package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "IN THE  HIGH\tCOURT\n\nOF DELHI", "IN THE HIGH COURT OF DELHI"},
		{"drops page numbers", "end of page one\n 12 \nstart of page two", "end of page one start of page two"},
		{"keeps inline numbers", "Section 302 of the IPC", "Section 302 of the IPC"},
		{"trims", "  \n text \n ", "text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "State_v__Sharma_2019", DocumentID("/data/State v. Sharma-2019.pdf"))
	assert.Equal(t, "judgment", DocumentID("judgment.txt"))

	long := strings.Repeat("a", 150) + ".pdf"
	assert.Len(t, DocumentID(long), maxDocumentIDLength)
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "order.txt")
	require.NoError(t, os.WriteFile(txt, []byte("The petition is allowed."), 0o644))
	got, err := ExtractText(txt)
	require.NoError(t, err)
	assert.Equal(t, "The petition is allowed.", got)

	_, err = ExtractText(filepath.Join(dir, "order.docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, Supported("a.PDF"))
	assert.True(t, Supported("a.txt"))
	assert.False(t, Supported("a.docx"))
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunker_Split(t *testing.T) {
	c, err := NewChunker(10, 4)
	require.NoError(t, err)

	chunks := c.Split(words(20))
	require.Len(t, chunks, 4)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Len(t, first, 10)
	assert.Equal(t, "w0", first[0])
	assert.Equal(t, "w6", second[0])
	assert.Equal(t, first[6:], second[:4], "consecutive windows share exactly the overlap")

	last := strings.Fields(chunks[3])
	assert.Equal(t, []string{"w18", "w19"}, last)
}

func TestChunker_Edges(t *testing.T) {
	c, err := NewChunker(DefaultMaxTokens, DefaultOverlap)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
	assert.Equal(t, []string{"one two"}, c.Split(" one\ntwo "))

	chunks := c.Split(words(1000))
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[1]), 200)

	_, err = NewChunker(0, 0)
	assert.Error(t, err)
	_, err = NewChunker(10, 10)
	assert.Error(t, err)
}
