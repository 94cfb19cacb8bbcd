package imageindex

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	logx "imgbot/pkg/logx"
)

// TextExtractor pulls searchable text out of an image file. Implementations
// must soft-fail: no text is an empty string, never an error that blocks
// indexing.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) string
}

// ExtractorFunc adapts a function to TextExtractor.
type ExtractorFunc func(ctx context.Context, path string) string

func (f ExtractorFunc) ExtractText(ctx context.Context, path string) string { return f(ctx, path) }

// NopExtractor performs no OCR.
var NopExtractor = ExtractorFunc(func(context.Context, string) string { return "" })

// TesseractExtractor shells out to the tesseract binary. A missing binary or
// any run failure yields empty text.
type TesseractExtractor struct {
	Binary  string        // default "tesseract"
	Timeout time.Duration // default 15s
	Log     logx.Logger
}

func (t *TesseractExtractor) ExtractText(ctx context.Context, path string) string {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if !t.Log.IsZero() {
			t.Log.Debug("ocr failed", logx.String("path", path), logx.Err(err))
		}
		return ""
	}
	return strings.TrimSpace(out.String())
}
