// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "strings"

// extensionMIME maps lowercase file extensions to MIME types for the common
// document, text, image, audio and video formats users attach. Anything not
// listed here is treated as a generic binary.
var extensionMIME = map[string]string{
	// Documents
	".pdf":  "application/pdf",
	".xlsx": mimeXLSX,
	".xls":  "application/vnd.ms-excel",
	".docx": mimeDOCX,
	".doc":  "application/msword",

	// Text
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".html": "text/html",
	".xml":  "application/xml",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".go":   "text/plain",
	".py":   "text/plain",
	".js":   "text/plain",
	".ts":   "text/plain",
	".sh":   "text/plain",
	".log":  "text/plain",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",

	// Audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",

	// Video
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// MIMEForExtension looks up the MIME type for a file extension (with or
// without the leading dot). Unknown extensions map to a generic binary type.
func MIMEForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if mime, ok := extensionMIME[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
