// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
	"github.com/jeranaias/ember-tui/internal/util"
)

// =============================================================================
// ATTACHMENT CHIPS
// =============================================================================

// kindIcons maps attachment kinds to their chip icon.
var kindIcons = map[model.AttachmentKind]string{
	model.KindImage: "🖼",
	model.KindVideo: "🎞",
	model.KindAudio: "🎵",
	model.KindFile:  "📄",
}

// AttachmentChip renders one attachment as a compact labeled chip.
func AttachmentChip(theme *styles.Theme, att model.Attachment) string {
	icon, ok := kindIcons[att.Kind]
	if !ok {
		icon = kindIcons[model.KindFile]
	}
	name := util.TruncateRunes(att.Name, 24)
	label := icon + " " + name
	if att.HumanSize != "" {
		label += " (" + att.HumanSize + ")"
	}
	return theme.AttachmentChip.Render(label)
}

// AttachmentRow renders a message's attachments as a single chip row.
// Returns "" when there are none.
func AttachmentRow(theme *styles.Theme, attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}
	chips := make([]string, 0, len(attachments))
	for _, att := range attachments {
		chips = append(chips, AttachmentChip(theme, att))
	}
	return strings.Join(chips, " ")
}
