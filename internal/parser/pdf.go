package parser

import (
	"bytes"
	"fmt"

	"document-qa/internal/models"

	"github.com/ledongthuc/pdf"
)

// pdfPage defers text extraction until the chunker asks for it.
type pdfPage struct {
	page   pdf.Page
	number int
}

func (p pdfPage) PlainText() (text string, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: malformed content: %v", p.number, r)
		}
	}()

	if p.page.V.IsNull() {
		return "", nil
	}
	text, err = p.page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", p.number, err)
	}
	return text, nil
}

func parsePDF(data []byte) (doc models.SourceDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.SourceDocument{}, err
	}

	numPages := reader.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, pdfPage{page: reader.Page(i), number: i})
	}

	return models.SourceDocument{
		Metadata: pdfMetadata(reader),
		Pages:    pages,
	}, nil
}

// pdfMetadata copies the string entries of the trailer's Info dictionary.
func pdfMetadata(reader *pdf.Reader) map[string]string {
	meta := map[string]string{}
	info := reader.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return meta
	}
	for _, key := range info.Keys() {
		if v := info.Key(key).Text(); v != "" {
			meta[key] = v
		}
	}
	return meta
}
