// Package chunker turns parsed documents into page-tagged text chunks.
package chunker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"
)

// PageTrim is the number of pages dropped from each end of one document.
type PageTrim struct {
	Front int
	Last  int
}

// Options control how pages are trimmed, split and cleaned.
type Options struct {
	UseSplitter  bool
	ChunkSize    int
	ChunkOverlap int

	RemovePages        bool
	FrontPagesToRemove int
	LastPagesToRemove  int
	// Trims overrides the front/last counts per document, by upload position.
	Trims []PageTrim

	RemoveLeftoverDelimiters bool
	Delimiters               []string
}

func DefaultOptions() Options {
	return Options{
		UseSplitter:              true,
		ChunkSize:                800,
		ChunkOverlap:             80,
		RemoveLeftoverDelimiters: true,
		Delimiters:               append([]string(nil), models.DefaultDelimiters...),
	}
}

// FromConfig maps the rag section of the config file to chunking options.
func FromConfig(cfg *config.RAGConfig) Options {
	if cfg == nil {
		return DefaultOptions()
	}
	opts := Options{
		UseSplitter:              cfg.UseSplitter,
		ChunkSize:                cfg.ChunkSize,
		ChunkOverlap:             cfg.ChunkOverlap,
		RemovePages:              cfg.RemovePages || len(cfg.Trims) > 0,
		FrontPagesToRemove:       cfg.FrontPagesToRemove,
		LastPagesToRemove:        cfg.LastPagesToRemove,
		RemoveLeftoverDelimiters: cfg.RemoveLeftoverDelimiters,
		Delimiters:               append([]string(nil), cfg.Delimiters...),
	}
	for _, t := range cfg.Trims {
		opts.Trims = append(opts.Trims, PageTrim{Front: t.Front, Last: t.Last})
	}
	return opts
}

// ParseTrim reads a per-document trim written as front:last, e.g. "1:2".
func ParseTrim(s string) (PageTrim, error) {
	frontStr, lastStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	front, frontErr := strconv.Atoi(frontStr)
	last, lastErr := strconv.Atoi(lastStr)
	if !ok || frontErr != nil || lastErr != nil || front < 0 || last < 0 {
		return PageTrim{}, models.NewValidationError(fmt.Sprintf("trim must look like front:last with non-negative page counts, got %q", s))
	}
	return PageTrim{Front: front, Last: last}, nil
}

func (o Options) Validate() error {
	if o.UseSplitter {
		if o.ChunkSize <= 0 {
			return models.NewValidationError(fmt.Sprintf("chunk size must be positive, got %d", o.ChunkSize))
		}
		if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
			return models.NewValidationError(fmt.Sprintf("chunk overlap must be in [0, %d), got %d", o.ChunkSize, o.ChunkOverlap))
		}
	}
	if o.RemovePages {
		if o.FrontPagesToRemove < 0 || o.LastPagesToRemove < 0 {
			return models.NewValidationError("pages to remove cannot be negative")
		}
		for i, t := range o.Trims {
			if t.Front < 0 || t.Last < 0 {
				return models.NewValidationError(fmt.Sprintf("pages to remove for document %d cannot be negative", i+1))
			}
		}
	}
	return nil
}

func (o Options) trimFor(i int) PageTrim {
	if i < len(o.Trims) {
		return o.Trims[i]
	}
	return PageTrim{Front: o.FrontPagesToRemove, Last: o.LastPagesToRemove}
}

// GetChunks splits every document into chunks and resolves the document display names.
// Chunks come back in document order, then page order, then position within the page;
// names come back in the order the documents were given.
func GetChunks(docs []models.SourceDocument, opts Options) ([]models.Chunk, []string, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	var splitter textsplitter.TextSplitter
	if opts.UseSplitter {
		splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(opts.ChunkSize),
			textsplitter.WithChunkOverlap(opts.ChunkOverlap),
			textsplitter.WithSeparators(models.SplitterSeparators),
		)
	}

	log.Info().Int("documents", len(docs)).Msg("Splitting documents")

	var chunks []models.Chunk
	names := make([]string, 0, len(docs))
	for i, doc := range docs {
		name := ResolveTitle(doc.Metadata, i+1)
		names = append(names, name)

		pages := doc.Pages
		if opts.RemovePages {
			trim := opts.trimFor(i)
			trimmed, err := TrimPages(pages, trim.Front, trim.Last)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, err)
			}
			pages = trimmed
		}
		log.Debug().
			Str("document", name).
			Int("original_pages", len(doc.Pages)).
			Int("pages", len(pages)).
			Msg("Pages after trimming")

		docChunks, err := chunkPages(name, pages, splitter)
		if err != nil {
			return nil, nil, models.NewParseError(fmt.Sprintf("failed to extract text from %s", name), err)
		}

		if opts.RemoveLeftoverDelimiters {
			for j := range docChunks {
				docChunks[j].Content = RemoveDelimiters(docChunks[j].Content, opts.Delimiters)
			}
		}
		chunks = append(chunks, docChunks...)
	}

	log.Info().Int("chunks", len(chunks)).Msg("Document chunks extracted")
	return chunks, names, nil
}

// chunkPages numbers pages from 1 over the slice it is given. A nil splitter keeps each
// page whole.
func chunkPages(source string, pages []models.Page, splitter textsplitter.TextSplitter) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for i, page := range pages {
		pageNumber := i + 1
		text, err := page.PlainText()
		if err != nil {
			return nil, err
		}

		pieces := []string{text}
		if splitter != nil {
			pieces, err = splitter.SplitText(text)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", pageNumber, err)
			}
		}

		for j, piece := range pieces {
			chunks = append(chunks, models.Chunk{
				Content: piece,
				Source:  source,
				Page:    pageNumber,
				ChunkID: j + 1,
			})
		}
	}
	return chunks, nil
}

// TrimPages returns a new slice without the first front and last last pages. Asking for more
// pages than the document has is an OutOfRangeError.
func TrimPages(pages []models.Page, front, last int) ([]models.Page, error) {
	if front < 0 || last < 0 {
		return nil, models.NewOutOfRangeError(fmt.Sprintf("cannot remove a negative number of pages (front %d, last %d)", front, last))
	}
	if front+last > len(pages) {
		return nil, models.NewOutOfRangeError(fmt.Sprintf("cannot remove %d front and %d last pages from a %d page document", front, last, len(pages)))
	}
	out := make([]models.Page, len(pages)-front-last)
	copy(out, pages[front:len(pages)-last])
	return out, nil
}

// RemoveDelimiters replaces every occurrence of each delimiter with a single space, in list
// order, and repeats the pass until nothing changes. Empty and single-space delimiters are
// skipped since they can never reach a fixed point.
func RemoveDelimiters(text string, delimiters []string) string {
	for {
		next := text
		for _, d := range delimiters {
			if d == "" || d == " " {
				continue
			}
			next = strings.ReplaceAll(next, d, " ")
		}
		if next == text {
			return next
		}
		text = next
	}
}

// ResolveTitle picks the display name of a document from its metadata. Keys are compared
// case-insensitively with any leading "/" removed: a key equal to "title" wins, otherwise
// the first key in sorted order that contains "title". Empty values are ignored. Without a
// match the name is uploaded_file_<ordinal>.
func ResolveTitle(metadata map[string]string, ordinal int) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fallback string
	for _, k := range keys {
		v := strings.TrimSpace(metadata[k])
		if v == "" {
			continue
		}
		norm := strings.ToLower(strings.TrimPrefix(k, "/"))
		if norm == "title" {
			return v
		}
		if fallback == "" && strings.Contains(norm, "title") {
			fallback = v
		}
	}
	if fallback != "" {
		return fallback
	}
	return models.PlaceholderNamePrefix + strconv.Itoa(ordinal)
}
