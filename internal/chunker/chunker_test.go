package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPage struct{}

func (failingPage) PlainText() (string, error) { return "", errors.New("corrupt stream") }

// countingPage records whether its text was ever extracted.
type countingPage struct {
	text  string
	reads *int
}

func (p countingPage) PlainText() (string, error) {
	*p.reads++
	return p.text, nil
}

func textDoc(meta map[string]string, pages ...string) models.SourceDocument {
	doc := models.SourceDocument{Metadata: meta}
	for _, p := range pages {
		doc.Pages = append(doc.Pages, models.TextPage(p))
	}
	return doc
}

func pagesOf(chunks []models.Chunk) []int {
	out := make([]int, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Page)
	}
	return out
}

func wholePages() Options {
	opts := DefaultOptions()
	opts.UseSplitter = false
	return opts
}

func TestGetChunks_WholePagesNoTitle(t *testing.T) {
	doc := textDoc(nil, "first page", "second page", "third page")

	chunks, names, err := GetChunks([]models.SourceDocument{doc}, wholePages())
	require.NoError(t, err)

	assert.Equal(t, []string{"uploaded_file_1"}, names)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2, 3}, pagesOf(chunks))
	for i, c := range chunks {
		assert.Equal(t, "uploaded_file_1", c.Source)
		assert.Equal(t, 1, c.ChunkID)
		assert.Equal(t, []string{"first page", "second page", "third page"}[i], c.Content)
	}
}

func TestGetChunks_TrimmedAndUntouchedDocuments(t *testing.T) {
	first := textDoc(map[string]string{"/Title": "Annual Report"}, "p1", "p2", "p3", "p4", "p5")
	second := textDoc(nil, "q1", "q2")

	opts := wholePages()
	opts.RemovePages = true
	opts.Trims = []PageTrim{{Front: 1, Last: 1}, {}}

	chunks, names, err := GetChunks([]models.SourceDocument{first, second}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Annual Report", "uploaded_file_2"}, names)
	require.Len(t, chunks, 5)
	assert.Equal(t, []int{1, 2, 3, 1, 2}, pagesOf(chunks))
	for i, want := range []string{"p2", "p3", "p4", "q1", "q2"} {
		assert.Equal(t, want, chunks[i].Content)
	}
	for _, c := range chunks[:3] {
		assert.Equal(t, "Annual Report", c.Source)
	}
	for _, c := range chunks[3:] {
		assert.Equal(t, "uploaded_file_2", c.Source)
	}
}

func TestGetChunks_TrimBeyondPageCount(t *testing.T) {
	opts := wholePages()
	opts.RemovePages = true
	opts.FrontPagesToRemove = 2
	opts.LastPagesToRemove = 2

	chunks, names, err := GetChunks([]models.SourceDocument{textDoc(nil, "a", "b", "c")}, opts)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeOutOfRange))
	assert.Nil(t, chunks)
	assert.Nil(t, names)
}

func TestGetChunks_ZeroRemovalIsNoop(t *testing.T) {
	opts := wholePages()
	opts.RemovePages = true

	chunks, _, err := GetChunks([]models.SourceDocument{textDoc(nil, "a", "b", "c")}, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pagesOf(chunks))
}

func TestGetChunks_DocumentOrderPreserved(t *testing.T) {
	first := textDoc(nil, "p1", "p2", "p3", "p4", "p5")
	second := textDoc(nil, "q1", "q2", "q3")

	opts := wholePages()
	opts.RemovePages = true
	opts.FrontPagesToRemove = 1
	opts.LastPagesToRemove = 1

	chunks, names, err := GetChunks([]models.SourceDocument{first, second}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"uploaded_file_1", "uploaded_file_2"}, names)
	require.Len(t, chunks, 4)
	assert.Equal(t, []int{1, 2, 3, 1}, pagesOf(chunks))
	assert.Equal(t, "uploaded_file_1", chunks[2].Source)
	assert.Equal(t, "uploaded_file_2", chunks[3].Source)
	assert.Equal(t, "q2", chunks[3].Content)
}

func TestGetChunks_TrimmedPagesAreNeverRead(t *testing.T) {
	reads := make([]int, 4)
	doc := models.SourceDocument{}
	for i := range reads {
		doc.Pages = append(doc.Pages, countingPage{text: fmt.Sprintf("page %d", i+1), reads: &reads[i]})
	}

	opts := wholePages()
	opts.RemovePages = true
	opts.FrontPagesToRemove = 1
	opts.LastPagesToRemove = 2

	chunks, _, err := GetChunks([]models.SourceDocument{doc}, opts)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "page 2", chunks[0].Content)
	assert.Equal(t, []int{0, 1, 0, 0}, reads)
}

func TestGetChunks_AllPagesTrimmed(t *testing.T) {
	opts := wholePages()
	opts.RemovePages = true
	opts.FrontPagesToRemove = 1
	opts.LastPagesToRemove = 1

	chunks, names, err := GetChunks([]models.SourceDocument{textDoc(nil, "a", "b")}, opts)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, []string{"uploaded_file_1"}, names)
}

func TestGetChunks_SplitterOverlap(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
	}
	text := strings.Join(words, " ")

	opts := DefaultOptions()
	opts.ChunkSize = 50
	opts.ChunkOverlap = 10

	chunks, _, err := GetChunks([]models.SourceDocument{textDoc(nil, text, "short page")}, opts)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	var page1 []models.Chunk
	for _, c := range chunks {
		if c.Page == 1 {
			page1 = append(page1, c)
		}
	}
	require.Greater(t, len(page1), 1)

	for i, c := range page1 {
		assert.LessOrEqual(t, len(c.Content), opts.ChunkSize)
		assert.Equal(t, i+1, c.ChunkID)
	}
	for i := 1; i < len(page1); i++ {
		prev, next := page1[i-1].Content, page1[i].Content
		shared := 0
		for k := 1; k <= opts.ChunkOverlap && k <= len(prev) && k <= len(next); k++ {
			if prev[len(prev)-k:] == next[:k] {
				shared = k
			}
		}
		assert.Greater(t, shared, 0, "chunks %d and %d share no overlap", i, i+1)
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, "short page", last.Content)
	assert.Equal(t, 1, last.ChunkID)
}

func TestGetChunks_SplitterKeepsOversizedToken(t *testing.T) {
	long := strings.Repeat("x", 120)
	opts := DefaultOptions()
	opts.ChunkSize = 50
	opts.ChunkOverlap = 5

	chunks, _, err := GetChunks([]models.SourceDocument{textDoc(nil, "intro "+long+" outro")}, opts)
	require.NoError(t, err)

	var found bool
	for _, c := range chunks {
		if strings.Contains(c.Content, long) {
			found = true
		}
	}
	assert.True(t, found, "oversized token must survive splitting")
}

func TestGetChunks_ParagraphsSplitFirst(t *testing.T) {
	para := func(word string) string { return strings.TrimSpace(strings.Repeat(word+" ", 8)) }
	text := para("alpha") + "\n\n" + para("bravo")

	opts := DefaultOptions()
	opts.ChunkSize = 60
	opts.ChunkOverlap = 0
	opts.RemoveLeftoverDelimiters = false

	chunks, _, err := GetChunks([]models.SourceDocument{textDoc(nil, text)}, opts)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, para("alpha"), chunks[0].Content)
	assert.Equal(t, para("bravo"), chunks[1].Content)
}

func TestGetChunks_DelimiterCleanup(t *testing.T) {
	doc := textDoc(nil, "line one\nline\ttwo   three  four")

	chunks, _, err := GetChunks([]models.SourceDocument{doc}, wholePages())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "line one line two three four", chunks[0].Content)

	opts := wholePages()
	opts.RemoveLeftoverDelimiters = false
	chunks, _, err = GetChunks([]models.SourceDocument{doc}, opts)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline\ttwo   three  four", chunks[0].Content)
}

func TestGetChunks_ExtractionFailureIsParseError(t *testing.T) {
	doc := models.SourceDocument{Pages: []models.Page{models.TextPage("ok"), failingPage{}}}

	chunks, names, err := GetChunks([]models.SourceDocument{doc}, wholePages())
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.Nil(t, names)
	assert.True(t, models.HasCode(err, models.ErrCodeParse))
}

func TestGetChunks_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.ChunkOverlap = opts.ChunkSize

	_, _, err := GetChunks([]models.SourceDocument{textDoc(nil, "a")}, opts)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))
}

func TestGetChunks_PageNumbersWithinRange(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	doc := textDoc(nil, long, long, long, long, long, long)

	for front := 0; front <= 3; front++ {
		for last := 0; last <= 3; last++ {
			opts := DefaultOptions()
			opts.ChunkSize = 100
			opts.ChunkOverlap = 20
			opts.RemovePages = true
			opts.FrontPagesToRemove = front
			opts.LastPagesToRemove = last

			chunks, _, err := GetChunks([]models.SourceDocument{doc}, opts)
			require.NoError(t, err)

			remaining := len(doc.Pages) - front - last
			for _, c := range chunks {
				assert.GreaterOrEqual(t, c.Page, 1)
				assert.LessOrEqual(t, c.Page, remaining)
			}
		}
	}
}

func TestTrimPages(t *testing.T) {
	pages := []models.Page{models.TextPage("1"), models.TextPage("2"), models.TextPage("3")}

	out, err := TrimPages(pages, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, pages, out)

	out, err = TrimPages(pages, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Page{models.TextPage("2")}, out)
	assert.Len(t, pages, 3, "input must not be modified")

	out, err = TrimPages(pages, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = TrimPages(pages, 2, 2)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeOutOfRange))

	_, err = TrimPages(pages, -1, 0)
	assert.True(t, models.HasCode(err, models.ErrCodeOutOfRange))
}

func TestTrimPages_NoAliasing(t *testing.T) {
	pages := []models.Page{models.TextPage("1"), models.TextPage("2"), models.TextPage("3")}
	out, err := TrimPages(pages, 0, 1)
	require.NoError(t, err)

	out[0] = models.TextPage("changed")
	assert.Equal(t, models.TextPage("1"), pages[0])
}

func TestRemoveDelimiters(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\tb", "a b"},
		{"a\nb", "a b"},
		{"a  b", "a b"},
		{"a   b", "a b"},
		{"a     b", "a b"},
		{"a\t\t\tb", "a b"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemoveDelimiters(tt.in, models.DefaultDelimiters), "input %q", tt.in)
	}
}

func TestRemoveDelimiters_Idempotent(t *testing.T) {
	inputs := []string{
		"a     b",
		"x\t \n  y",
		"lots \n\n\n of \t\t   space",
		strings.Repeat(" ", 17) + "z",
	}
	for _, in := range inputs {
		once := RemoveDelimiters(in, models.DefaultDelimiters)
		twice := RemoveDelimiters(once, models.DefaultDelimiters)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestRemoveDelimiters_CustomOrderAndSkips(t *testing.T) {
	assert.Equal(t, "a b", RemoveDelimiters("a--b", []string{"-", "  "}))
	assert.Equal(t, "a;b", RemoveDelimiters("a;b", []string{"", " "}))
}

func TestResolveTitle(t *testing.T) {
	tests := []struct {
		name    string
		meta    map[string]string
		ordinal int
		want    string
	}{
		{"nil metadata", nil, 3, "uploaded_file_3"},
		{"pdf style key", map[string]string{"/Title": "Go Patterns", "/Author": "A"}, 1, "Go Patterns"},
		{"lower case", map[string]string{"title": "Notes"}, 1, "Notes"},
		{"contains title", map[string]string{"dc:title": "Core"}, 1, "Core"},
		{"exact wins", map[string]string{"Subtitle": "Sub", "Title": "Main"}, 1, "Main"},
		{"empty value ignored", map[string]string{"Title": "  "}, 2, "uploaded_file_2"},
		{"no title key", map[string]string{"Author": "B"}, 4, "uploaded_file_4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTitle(tt.meta, tt.ordinal))
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.RemovePages = true
	cfg.RAG.FrontPagesToRemove = 2

	opts := FromConfig(&cfg.RAG)
	assert.True(t, opts.UseSplitter)
	assert.Equal(t, 800, opts.ChunkSize)
	assert.Equal(t, 80, opts.ChunkOverlap)
	assert.True(t, opts.RemovePages)
	assert.Equal(t, 2, opts.FrontPagesToRemove)
	assert.Equal(t, models.DefaultDelimiters, opts.Delimiters)

	assert.Equal(t, DefaultOptions(), FromConfig(nil))
}

func TestFromConfig_DocumentTrims(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.UseSplitter = false
	cfg.RAG.Trims = []config.PageTrim{{Front: 1, Last: 1}, {}}

	opts := FromConfig(&cfg.RAG)
	assert.True(t, opts.RemovePages)
	assert.Equal(t, []PageTrim{{Front: 1, Last: 1}, {}}, opts.Trims)

	first := textDoc(nil, "p1", "p2", "p3", "p4", "p5")
	second := textDoc(nil, "q1", "q2")
	chunks, _, err := GetChunks([]models.SourceDocument{first, second}, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 1, 2}, pagesOf(chunks))
}

func TestParseTrim(t *testing.T) {
	tests := []struct {
		in      string
		want    PageTrim
		wantErr bool
	}{
		{"1:2", PageTrim{Front: 1, Last: 2}, false},
		{" 0:0 ", PageTrim{}, false},
		{"3:0", PageTrim{Front: 3}, false},
		{"1", PageTrim{}, true},
		{"a:1", PageTrim{}, true},
		{"1:-1", PageTrim{}, true},
		{":", PageTrim{}, true},
		{"", PageTrim{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTrim(tt.in)
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.in)
			assert.True(t, models.HasCode(err, models.ErrCodeValidation))
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
