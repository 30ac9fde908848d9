// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/ember-tui/internal/model"
)

// JSONExporter writes the session as indented JSON, in the same shape the
// session store persists, so exports can be re-imported or processed by
// other tools.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

// FileExtension implements Exporter.
func (e *JSONExporter) FileExtension() string { return ".json" }

// Export implements Exporter.
func (e *JSONExporter) Export(sess *model.ChatSession) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	return json.MarshalIndent(sess, "", "  ")
}
