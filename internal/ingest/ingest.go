// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest converts user-selected files into message attachments.
//
// Every file becomes a base64 payload with a MIME classification. Office
// documents get their text extracted and are reclassified as text so the
// model receives readable content instead of an opaque binary blob; all
// other formats pass through unchanged.
package ingest

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/ember-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UnsupportedFileError reports a file that could not be ingested. Failures
// are scoped to the single file; sibling files in a multi-file selection are
// unaffected.
type UnsupportedFileError struct {
	Name  string
	Cause error
}

func (e *UnsupportedFileError) Error() string {
	if e.Cause != nil {
		return "cannot ingest " + e.Name + ": " + e.Cause.Error()
	}
	return "cannot ingest " + e.Name
}

func (e *UnsupportedFileError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// INGESTION
// =============================================================================

// MIME types that trigger office-document text extraction.
const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Ingest converts raw file bytes into an Attachment. declaredMIME is the
// caller's idea of the content type and may be empty, in which case the
// extension lookup table decides.
func Ingest(name string, data []byte, declaredMIME string) (*model.Attachment, error) {
	mimeType := declaredMIME
	if mimeType == "" {
		mimeType = MIMEForExtension(filepath.Ext(name))
	}

	var payload string
	switch mimeType {
	case mimeXLSX:
		text, err := ExtractSpreadsheetText(data)
		if err != nil {
			return nil, &UnsupportedFileError{Name: name, Cause: err}
		}
		payload = base64.StdEncoding.EncodeToString([]byte(text))
		mimeType = "text/csv"

	case mimeDOCX:
		text, err := ExtractDocumentText(data)
		if err != nil {
			return nil, &UnsupportedFileError{Name: name, Cause: err}
		}
		payload = base64.StdEncoding.EncodeToString([]byte(text))
		mimeType = "text/plain"

	default:
		payload = base64.StdEncoding.EncodeToString(data)
	}

	return &model.Attachment{
		ID:        model.NewAttachmentID(),
		MIMEType:  mimeType,
		Data:      payload,
		Name:      filepath.Base(name),
		HumanSize: HumanSize(len(data)),
		Kind:      ClassifyKind(mimeType),
	}, nil
}

// IngestFile reads and ingests a file from disk.
func IngestFile(path string) (*model.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnsupportedFileError{Name: filepath.Base(path), Cause: err}
	}
	return Ingest(path, data, "")
}

// IngestAll ingests a batch of files, isolating per-file failures: one bad
// file never aborts its siblings. Returns the successful attachments plus
// one error per failed file.
func IngestAll(paths []string) ([]model.Attachment, []error) {
	var attachments []model.Attachment
	var errs []error

	for _, path := range paths {
		att, err := IngestFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		attachments = append(attachments, *att)
	}

	return attachments, errs
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ClassifyKind buckets a MIME type for preview rendering.
func ClassifyKind(mimeType string) model.AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return model.KindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return model.KindAudio
	default:
		return model.KindFile
	}
}

// HumanSize formats a byte count for display.
func HumanSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
