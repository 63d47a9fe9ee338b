package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
)

// Upload is a file received from a user, held in memory for the session.
type Upload struct {
	FileName string
	Data     []byte
}

// SupportedExtensions lists the file types the loaders understand, PDF first.
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".xltm", ".txt", ".md"}

// ParseFile loads a document from disk.
func ParseFile(filePath string) (models.SourceDocument, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.SourceDocument{}, models.NewParseError(fmt.Sprintf("failed to read %s", filePath), err)
	}
	return ParseUpload(filepath.Base(filePath), data)
}

// ParseUpload loads a document from its raw bytes, picking the loader by extension.
func ParseUpload(fileName string, data []byte) (models.SourceDocument, error) {
	var (
		doc models.SourceDocument
		err error
	)

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		doc, err = parsePDF(data)
	case ".docx":
		doc, err = parseDOCX(data)
	case ".pptx":
		doc, err = parsePPTX(data)
	case ".xlsx":
		doc, err = parseXLSX(data)
	case ".xlsm", ".xltx", ".xltm":
		doc, err = parseExcelize(data)
	case ".txt", ".md":
		doc, err = parseText(data)
	default:
		err = fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return models.SourceDocument{}, models.NewParseError(fmt.Sprintf("failed to parse %s", fileName), err)
	}

	doc.FileName = fileName
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	log.Debug().Str("file", fileName).Int("pages", len(doc.Pages)).Msg("Parsed document")
	return doc, nil
}

// ParseUploads parses a batch in order. The first failure aborts the whole batch.
func ParseUploads(uploads []Upload) ([]models.SourceDocument, error) {
	docs := make([]models.SourceDocument, 0, len(uploads))
	for _, u := range uploads {
		doc, err := ParseUpload(u.FileName, u.Data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IsSupported reports whether fileName has a loader.
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// text files use form feeds as page breaks
func parseText(data []byte) (models.SourceDocument, error) {
	var pages []models.Page
	for _, p := range strings.Split(string(data), "\f") {
		pages = append(pages, models.TextPage(p))
	}
	return models.SourceDocument{Pages: pages}, nil
}
