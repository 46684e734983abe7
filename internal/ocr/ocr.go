// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr turns input documents into plain text. Text files are read
// as is, PDFs yield their embedded text when they have enough of it, and
// images and scanned PDFs go to an image OCR backend.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/chronos/pkg/types"
)

// ErrUnsupportedFormat is returned for extensions no converter handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Converter extracts text from one file.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Method names how text was obtained.
type Method string

const (
	MethodText   Method = "text"
	MethodNative Method = "native-pdf"
	MethodImage  Method = "image-ocr"
)

// Result is the text extracted from one document.
type Result struct {
	Text   string `json:"text" yaml:"-"`
	Method Method `json:"method" yaml:"method"`

	// Chars is the length of Text in bytes.
	Chars int `json:"chars" yaml:"chars"`
}

var imageMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Supported reports whether Extract can handle path's extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".pdf":
		return true
	}
	_, ok := imageMIME[ext]
	return ok
}

// Extractor dispatches documents to converters by extension.
type Extractor struct {
	// Native reads embedded PDF text.
	Native Converter

	// Image handles image files.
	Image Converter

	// ScannedPDF handles PDFs with too little native text. Nil keeps the
	// native text whatever its length.
	ScannedPDF Converter

	// MinNativeChars is the least native text accepted without OCR.
	MinNativeChars int

	Logger *zap.Logger
}

// Extract returns the text of the document at path.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ext := strings.ToLower(filepath.Ext(path))

	var (
		text   string
		method Method
		err    error
	)
	switch {
	case ext == ".txt" || ext == ".md":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("reading %s: %w", path, err)
		}
		text, method = string(data), MethodText

	case ext == ".pdf":
		text, method, err = e.pdf(ctx, path, log)

	case imageMIME[ext] != "":
		if e.Image == nil {
			return Result{}, fmt.Errorf("no image OCR backend configured for %s", path)
		}
		text, err = e.Image.Convert(ctx, path)
		method = MethodImage

	default:
		return Result{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return Result{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("no text extracted from %s", path)
	}
	log.Info("text extracted",
		zap.String("file", filepath.Base(path)),
		zap.String("method", string(method)),
		zap.Int("chars", len(text)))
	return Result{Text: text, Method: method, Chars: len(text)}, nil
}

func (e *Extractor) pdf(ctx context.Context, path string, log *zap.Logger) (string, Method, error) {
	native := e.Native
	if native == nil {
		native = NativePDF{}
	}

	text, err := native.Convert(ctx, path)
	if err != nil {
		log.Debug("native PDF text unavailable", zap.String("file", path), zap.Error(err))
	}
	if err == nil && len(strings.TrimSpace(text)) >= e.MinNativeChars {
		return text, MethodNative, nil
	}

	if e.ScannedPDF == nil {
		if err != nil {
			return "", "", err
		}
		log.Warn("PDF has little native text and no scanned-PDF OCR is configured",
			zap.String("file", path), zap.Int("chars", len(strings.TrimSpace(text))))
		return text, MethodNative, nil
	}

	log.Info("falling back to image OCR for PDF", zap.String("file", path))
	ocrText, ocrErr := e.ScannedPDF.Convert(ctx, path)
	if ocrErr != nil {
		return "", "", fmt.Errorf("OCR of %s: %w", path, ocrErr)
	}
	return ocrText, MethodImage, nil
}

// NewExtractor builds an Extractor for cfg. The tesseract backend needs a
// container runtime; the gemini backend needs gen. Gemini vision also
// handles scanned PDFs, which tesseract cannot read directly.
func NewExtractor(ctx context.Context, cfg types.OCRConfig, gen Generator, logger *zap.Logger) (*Extractor, error) {
	e := &Extractor{
		Native:         NativePDF{},
		MinNativeChars: cfg.MinNativeChars,
		Logger:         logger,
	}

	var vision *Vision
	if gen != nil {
		vision = &Vision{Gen: gen}
		e.ScannedPDF = vision
	}

	switch cfg.Backend {
	case types.OCRGemini:
		if vision == nil {
			return nil, fmt.Errorf("gemini OCR backend needs a model client")
		}
		e.Image = vision
	case types.OCRTesseract, "":
		t, err := NewTesseract(ctx, cfg)
		if err != nil {
			if vision == nil {
				return nil, err
			}
			if logger != nil {
				logger.Warn("tesseract unavailable, using vision OCR for images", zap.Error(err))
			}
			e.Image = vision
			return e, nil
		}
		e.Image = t
	default:
		return nil, fmt.Errorf("unknown OCR backend %q", cfg.Backend)
	}
	return e, nil
}
