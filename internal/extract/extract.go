package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/alan-mat/saidia/internal/api"
	"github.com/alan-mat/saidia/internal/provider"
)

// annotationsLabel separates document body text from the appended
// annotations block.
const annotationsLabel = "\n\n[Annotations]\n"

// Document is a raw uploaded file: its payload plus the name the user gave
// it. The extension of the name decides which extraction path runs.
type Document struct {
	Name string
	Data []byte
}

func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// Base64 encodes the raw payload for providers that take data URLs.
func (d Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// Extractor converts raw documents into plain text. Extraction never fails
// loudly: every internal error degrades to empty or partial text and is
// logged, so the caller only ever has to check for an empty result.
type Extractor struct {
	ocr     provider.OCR
	quality QualityPolicy

	// extraction stages, replaceable in tests
	layout pdfStageFunc
	annots annotStageFunc
}

type pdfStageFunc func(data []byte) (*api.DocumentContent, error)
type annotStageFunc func(data []byte) ([]string, error)

type Option func(*Extractor)

// WithOCR enables the OCR fallback for PDFs whose layout-extracted text
// fails the quality gate. Without it, low-quality text is discarded and the
// body stays empty.
func WithOCR(ocr provider.OCR) Option {
	return func(e *Extractor) {
		e.ocr = ocr
	}
}

func WithQualityPolicy(p QualityPolicy) Option {
	return func(e *Extractor) {
		e.quality = p
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		quality: DefaultQualityPolicy(),
		layout:  pdfLayoutText,
		annots:  pdfAnnotations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the plain text of doc. Unsupported extensions and
// unreadable payloads yield an empty string, never an error.
func (e *Extractor) Extract(ctx context.Context, doc Document) string {
	switch doc.Ext() {
	case ".txt":
		return e.extractPlainText(doc)
	case ".docx":
		return e.extractDocx(doc)
	case ".pdf":
		return e.extractPDF(ctx, doc)
	default:
		slog.Warn("unsupported file format", "name", doc.Name, "ext", doc.Ext())
		return ""
	}
}

func (e *Extractor) extractPlainText(doc Document) string {
	if !utf8.Valid(doc.Data) {
		slog.Warn("text file is not valid utf-8", "name", doc.Name)
		return ""
	}
	return string(doc.Data)
}

func (e *Extractor) extractPDF(ctx context.Context, doc Document) string {
	text := ""

	content, err := e.layout(doc.Data)
	if err != nil {
		slog.Warn("pdf layout extraction failed", "name", doc.Name, "err", err)
	} else {
		for _, page := range content.Pages {
			slog.Debug("extracted page", "name", doc.Name, "page", page.Index, "preview", preview(page.Text, 200))
		}
		text = content.Text()
	}

	if e.quality.IsLowQuality(text) {
		slog.Warn("low quality extract, falling back to ocr",
			"name", doc.Name,
			"words", wordCount(text),
			"watermark_hits", e.quality.watermarkHits(text))
		text = e.recognize(ctx, doc)
	}

	notes, err := e.annots(doc.Data)
	if err != nil {
		slog.Warn("annotation extraction failed", "name", doc.Name, "err", err)
	} else if joined := strings.Join(notes, "\n"); strings.TrimSpace(joined) != "" {
		// appended even when the body is empty, so annotation-only
		// documents still produce something to index
		text += annotationsLabel + joined
	}

	return text
}

// recognize runs the OCR fallback, degrading every failure mode to an empty
// string. It is attempted exactly once per document.
func (e *Extractor) recognize(ctx context.Context, doc Document) string {
	if e.ocr == nil {
		slog.Warn("no ocr provider configured, skipping fallback", "name", doc.Name)
		return ""
	}

	content, err := e.ocr.Recognize(ctx, doc.Base64())
	switch {
	case err == nil:
		for _, page := range content.Pages {
			slog.Debug("ocr page", "name", doc.Name, "page", page.Index, "preview", preview(page.Text, 100))
		}
		return content.Text()
	case errors.Is(err, provider.ErrNoText):
		slog.Warn("ocr found no text in document", "name", doc.Name)
		return ""
	default:
		slog.Error("ocr failed", "name", doc.Name, "err", err)
		return ""
	}
}

// preview truncates s to at most n bytes without splitting a rune.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
