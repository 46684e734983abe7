// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/chronos/internal/container"
	"github.com/pdiddy/chronos/internal/generate"
	"github.com/pdiddy/chronos/pkg/types"
)

// NativePDF reads the text layer of a PDF, page by page.
type NativePDF struct{}

// Convert returns the embedded text of every page, separated by blank lines.
// Pages that fail to decode are skipped.
func (NativePDF) Convert(_ context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// Tesseract runs tesseract inside a container, feeding the image on stdin.
type Tesseract struct {
	runtime  container.Runtime
	image    string
	language string
}

// NewTesseract detects a container runtime and checks that the configured
// tesseract image is present.
func NewTesseract(ctx context.Context, cfg types.OCRConfig) (*Tesseract, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	return newTesseract(ctx, rt, cfg)
}

func newTesseract(ctx context.Context, rt container.Runtime, cfg types.OCRConfig) (*Tesseract, error) {
	if cfg.Image == "" {
		cfg.Image = types.DefaultPipelineConfig().OCR.Image
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if err := rt.ImageExists(ctx, cfg.Image); err != nil {
		return nil, fmt.Errorf("tesseract image not available in %s: %w", rt.Name(), err)
	}
	return &Tesseract{runtime: rt, image: cfg.Image, language: cfg.Language}, nil
}

// Convert OCRs the image at path.
func (t *Tesseract) Convert(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	cmd := []string{"tesseract", "stdin", "stdout", "-l", t.language}
	if err := t.runtime.Run(ctx, t.image, cmd, f, &out); err != nil {
		return "", fmt.Errorf("tesseract on %s: %w", path, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("tesseract produced empty output for %s", path)
	}
	return out.String(), nil
}

// Generator produces text for a request. *generate.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (string, error)
}

const visionPrompt = `Transcribe all text in this scanned historical medical document.

- Preserve the original wording, spelling, and language, including archaic
  medical terms, Latin phrases, and abbreviations.
- Keep paragraph breaks and the reading order of columns.
- Mark illegible words as [illegible] rather than guessing.
- Do not summarise, translate, or add commentary.

Return only the transcribed text.`

// Vision transcribes images and scanned PDFs with a multimodal model.
type Vision struct {
	Gen Generator
}

// Convert sends the file inline with a transcription prompt.
func (v *Vision) Convert(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := imageMIME[ext]
	if ext == ".pdf" {
		mimeType = "application/pdf"
	}
	if mimeType == "" {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	out, err := v.Gen.Generate(ctx, generate.Request{
		Step:        "ocr.vision",
		Prompt:      visionPrompt,
		Images:      []generate.Image{{Data: data, MIMEType: mimeType}},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("vision OCR of %s: %w", path, err)
	}
	return out, nil
}
