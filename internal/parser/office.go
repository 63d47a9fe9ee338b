package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"document-qa/internal/models"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

const corePropsPath = "docProps/core.xml"

// DOCX carries no page breaks we can rely on, so the whole body is one page.
func parseDOCX(data []byte) (models.SourceDocument, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.SourceDocument{}, err
	}
	defer r.Close()

	body, err := xmlText([]byte(r.Editable().GetContent()))
	if err != nil {
		return models.SourceDocument{}, err
	}

	meta, err := officeMetadata(data)
	if err != nil {
		return models.SourceDocument{}, err
	}
	return models.SourceDocument{
		Metadata: meta,
		Pages:    []models.Page{models.TextPage(body)},
	}, nil
}

// one page per slide, in slide number order
func parsePPTX(data []byte) (models.SourceDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.SourceDocument{}, err
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || path.Ext(f.Name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	pages := make([]models.Page, 0, len(slides))
	for _, s := range slides {
		raw, err := readZipFile(s.file)
		if err != nil {
			return models.SourceDocument{}, err
		}
		text, err := xmlText(raw)
		if err != nil {
			return models.SourceDocument{}, fmt.Errorf("slide %d: %w", s.number, err)
		}
		pages = append(pages, models.TextPage(text))
	}

	meta, err := coreProperties(zr)
	if err != nil {
		return models.SourceDocument{}, err
	}
	return models.SourceDocument{Metadata: meta, Pages: pages}, nil
}

// one page per sheet, cells tab separated
func parseXLSX(data []byte) (models.SourceDocument, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return models.SourceDocument{}, err
	}

	pages := make([]models.Page, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.TextPage(text.String()))
	}

	meta, err := officeMetadata(data)
	if err != nil {
		return models.SourceDocument{}, err
	}
	return models.SourceDocument{Metadata: meta, Pages: pages}, nil
}

// macro-enabled workbooks and templates go through excelize
func parseExcelize(data []byte) (models.SourceDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return models.SourceDocument{}, err
	}
	defer f.Close()

	var pages []models.Page
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return models.SourceDocument{}, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.TextPage(text.String()))
	}

	meta := map[string]string{}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		if props.Title != "" {
			meta["title"] = props.Title
		}
		if props.Creator != "" {
			meta["creator"] = props.Creator
		}
		if props.Subject != "" {
			meta["subject"] = props.Subject
		}
	}
	return models.SourceDocument{Metadata: meta, Pages: pages}, nil
}

func officeMetadata(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return coreProperties(zr)
}

// coreProperties reads docProps/core.xml into a map keyed by element local name
// (title, creator, subject, ...). A package without core properties yields an empty map.
func coreProperties(zr *zip.Reader) (map[string]string, error) {
	meta := map[string]string{}
	for _, f := range zr.File {
		if f.Name != corePropsPath {
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		dec := xml.NewDecoder(bytes.NewReader(raw))
		var current string
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("core properties: %w", err)
			}
			switch t := tok.(type) {
			case xml.StartElement:
				current = t.Name.Local
			case xml.CharData:
				if v := strings.TrimSpace(string(t)); v != "" && current != "" {
					meta[current] = v
				}
			case xml.EndElement:
				current = ""
			}
		}
	}
	return meta, nil
}

// xmlText collects the text runs (<w:t>, <a:t>) of an OOXML part, one line per paragraph.
func xmlText(raw []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		text   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
