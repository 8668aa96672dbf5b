package service

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// maxExtractBytes bounds how much of an upload is read for context.
const maxExtractBytes = 512 << 10

// TextExtractor turns an uploaded document into the reference text fed to
// the model. Implementations for richer formats plug in here; the service
// only needs plain text back.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (string, error)
}

// plainTextExtractor reads the upload as UTF-8 text, sanitizing invalid
// byte sequences. It is the baseline extractor for .txt material and a
// best-effort fallback for the other allowed formats.
type plainTextExtractor struct{}

var _ TextExtractor = (*plainTextExtractor)(nil)

// NewPlainTextExtractor creates the baseline text extractor.
func NewPlainTextExtractor() TextExtractor {
	return &plainTextExtractor{}
}

func (e *plainTextExtractor) Extract(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxExtractBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read upload %q: %w", filename, err)
	}

	text := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
	if text == "" {
		return "", fmt.Errorf("upload %q contains no readable text", filename)
	}
	return text, nil
}
