package service

import (
	"io"
	"path/filepath"
	"strings"
)

// allowedExtensions is the upload allow-list. Anything else is rejected
// before a task is queued.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".ppt":  true,
	".pptx": true,
}

// Upload describes one document attached to a question. Content must be
// consumed before the originating request completes.
type Upload struct {
	Filename  string
	SizeBytes int64
	Content   io.Reader
}

// Extension returns the lowercase file extension including the dot.
func (u Upload) Extension() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// AllowedUpload reports whether the filename's extension is on the
// allow-list. Matching is case-insensitive.
func AllowedUpload(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}
