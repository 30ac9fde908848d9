// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SPREADSHEET EXTRACTION (XLSX)
// =============================================================================

// ExtractSpreadsheetText renders every sheet of an XLSX workbook as CSV text,
// each sheet prefixed with a name header. The result is what the model sees
// in place of the binary workbook.
func ExtractSpreadsheetText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}

		sb.WriteString("## Sheet: ")
		sb.WriteString(sheet)
		sb.WriteString("\n")

		w := csv.NewWriter(&sb)
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// =============================================================================
// WORD DOCUMENT EXTRACTION (DOCX)
// =============================================================================

var errNoDocumentXML = errors.New("document.xml not found in archive")

// ExtractDocumentText pulls the raw text out of a DOCX file. A DOCX is a zip
// archive whose body lives in word/document.xml; text runs sit in <w:t>
// elements, paragraphs in <w:p>. Formatting is dropped, paragraph breaks are
// kept as newlines.
func ExtractDocumentText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if doc == nil {
		return "", errNoDocumentXML
	}
	defer doc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(doc)
	inText := false
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
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}
