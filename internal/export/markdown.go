// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/think"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes a session as a readable Markdown document.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// FileExtension implements Exporter.
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export implements Exporter.
func (e *MarkdownExporter) Export(sess *model.ChatSession) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder

	sb.WriteString("# " + sess.DisplayTitle() + "\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from ember on %s*\n\n",
		time.Now().Format("2006-01-02 15:04")))
	sb.WriteString("---\n\n")

	for i, msg := range sess.Messages {
		e.writeMessage(&sb, msg)
		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeMessage(sb *strings.Builder, msg *model.Message) {
	label := msg.Role.DisplayName()
	if msg.Role == model.RoleModel && msg.Provider != "" {
		label = "Ember (" + msg.Provider + ")"
	}

	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "### %s <sub>%s</sub>\n\n", label, msg.Timestamp.Format("15:04:05"))
	} else {
		fmt.Fprintf(sb, "### %s\n\n", label)
	}

	for _, att := range msg.Attachments {
		fmt.Fprintf(sb, "> 📎 %s (%s)\n", att.Name, att.HumanSize)
	}
	if len(msg.Attachments) > 0 {
		sb.WriteString("\n")
	}

	text := msg.Text
	if msg.Role == model.RoleModel {
		result := think.Classify(text, false)
		if result.Thought != "" && e.options.IncludeThoughts {
			sb.WriteString("<details><summary>Reasoning</summary>\n\n")
			sb.WriteString(result.Thought)
			sb.WriteString("\n\n</details>\n\n")
		}
		text = result.Answer
	}
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\n")

	if msg.Grounding != nil && !msg.Grounding.IsEmpty() {
		sb.WriteString("**Sources:**\n\n")
		for _, chunk := range msg.Grounding.Chunks {
			if chunk.Web == nil {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = chunk.Web.URI
			}
			fmt.Fprintf(sb, "- [%s](%s)\n", title, chunk.Web.URI)
		}
		sb.WriteString("\n")
	}
}
