package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alan-mat/saidia/internal/api"
)

type fakeOCR struct {
	content *api.DocumentContent
	err     error
	calls   int
}

func (f *fakeOCR) Recognize(ctx context.Context, base64file string) (*api.DocumentContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

func pages(texts ...string) *api.DocumentContent {
	dc := &api.DocumentContent{}
	for i, t := range texts {
		dc.Pages = append(dc.Pages, api.DocumentPage{Index: i + 1, Text: t})
	}
	return dc
}

func longText(words int) string {
	return strings.Repeat("word ", words)
}

func TestExtractPlainText(t *testing.T) {
	e := New()
	got := e.Extract(context.Background(), Document{Name: "hello.txt", Data: []byte("Hello world")})
	if got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestExtractPlainTextInvalidUTF8(t *testing.T) {
	e := New()
	got := e.Extract(context.Background(), Document{Name: "broken.txt", Data: []byte{0xff, 0xfe, 0xfd}})
	if got != "" {
		t.Errorf("expected empty string for invalid utf-8, got %q", got)
	}
}

func TestExtractUnsupported(t *testing.T) {
	e := New()
	got := e.Extract(context.Background(), Document{Name: "image.png", Data: []byte{1, 2, 3}})
	if got != "" {
		t.Errorf("expected empty string for unsupported format, got %q", got)
	}
}

func TestExtractPDFGoodLayout(t *testing.T) {
	ocr := &fakeOCR{}
	e := New(WithOCR(ocr))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(longText(150)), nil
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "doc.pdf"})
	if wordCount(got) != 150 {
		t.Errorf("expected 150 words, got %d", wordCount(got))
	}
	if ocr.calls != 0 {
		t.Errorf("ocr must not run when layout text passes the quality gate")
	}
}

func TestExtractPDFLowWordCountTriggersOCR(t *testing.T) {
	ocr := &fakeOCR{content: pages("recovered by ocr")}
	e := New(WithOCR(ocr))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(longText(40)), nil
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "scan.pdf"})
	if ocr.calls != 1 {
		t.Fatalf("expected exactly one ocr attempt, got %d", ocr.calls)
	}
	if got != "recovered by ocr" {
		t.Errorf("expected ocr text, got %q", got)
	}
}

func TestExtractPDFWatermarkTriggersOCR(t *testing.T) {
	ocr := &fakeOCR{content: pages("clean text")}
	e := New(WithOCR(ocr))
	watermarked := longText(200) + strings.Repeat(" EssayPro ", 4)
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(watermarked), nil
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "mill.pdf"})
	if ocr.calls != 1 {
		t.Fatalf("expected exactly one ocr attempt, got %d", ocr.calls)
	}
	if got != "clean text" {
		t.Errorf("expected ocr text, got %q", got)
	}
}

func TestExtractPDFOCRFailureLeavesTextEmpty(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("service unavailable")}
	e := New(WithOCR(ocr))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(longText(40)), nil
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "scan.pdf"})
	if ocr.calls != 1 {
		t.Fatalf("expected exactly one ocr attempt, got %d", ocr.calls)
	}
	if got != "" {
		t.Errorf("expected empty text after failed fallback, got %q", got)
	}
}

func TestExtractPDFNoOCRConfigured(t *testing.T) {
	e := New()
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(longText(40)), nil
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "scan.pdf"})
	if got != "" {
		t.Errorf("expected empty text without ocr provider, got %q", got)
	}
}

func TestExtractPDFAnnotationsAppended(t *testing.T) {
	e := New()
	body := strings.TrimSpace(longText(150))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(body), nil
	}
	e.annots = func(data []byte) ([]string, error) {
		return []string{"first note", "second note"}, nil
	}

	got := e.Extract(context.Background(), Document{Name: "doc.pdf"})
	want := body + annotationsLabel + "first note\nsecond note"
	if got != want {
		t.Errorf("annotations not appended correctly:\ngot  %q\nwant %q", got, want)
	}
}

func TestExtractPDFAnnotationsOnEmptyBody(t *testing.T) {
	// both layout and ocr come up empty, annotations must still survive
	ocr := &fakeOCR{err: api.ErrNoText}
	e := New(WithOCR(ocr))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(""), nil
	}
	e.annots = func(data []byte) ([]string, error) {
		return []string{"reviewer comment"}, nil
	}

	got := e.Extract(context.Background(), Document{Name: "empty.pdf"})
	want := annotationsLabel + "reviewer comment"
	if got != want {
		t.Errorf("expected annotations on empty body:\ngot  %q\nwant %q", got, want)
	}
}

func TestExtractPDFAnnotationFailureKeepsBody(t *testing.T) {
	e := New()
	body := strings.TrimSpace(longText(150))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return pages(body), nil
	}
	e.annots = func(data []byte) ([]string, error) {
		return nil, errors.New("corrupt annotation object")
	}

	got := e.Extract(context.Background(), Document{Name: "doc.pdf"})
	if got != body {
		t.Errorf("body text lost on annotation failure:\ngot  %q\nwant %q", got, body)
	}
}

func TestExtractPDFLayoutFailureStillTriesOCR(t *testing.T) {
	ocr := &fakeOCR{content: pages("ocr text")}
	e := New(WithOCR(ocr))
	e.layout = func(data []byte) (*api.DocumentContent, error) {
		return nil, errors.New("unparseable xref table")
	}
	e.annots = func(data []byte) ([]string, error) { return nil, nil }

	got := e.Extract(context.Background(), Document{Name: "doc.pdf"})
	if got != "ocr text" {
		t.Errorf("expected ocr fallback after layout failure, got %q", got)
	}
}

func TestQualityPolicy(t *testing.T) {
	p := DefaultQualityPolicy()

	tests := []struct {
		name string
		text string
		low  bool
	}{
		{"empty", "", true},
		{"short", longText(40), true},
		{"long enough", longText(100), false},
		{"watermarked", longText(200) + " essaypro ESSAYPRO EssayPro essayPRO", true},
		{"few watermark hits", longText(200) + " essaypro essaypro", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsLowQuality(tt.text); got != tt.low {
				t.Errorf("IsLowQuality(%s) = %v, expected %v", tt.name, got, tt.low)
			}
		})
	}
}

func TestQualityPolicyConfigurable(t *testing.T) {
	p := QualityPolicy{MinWords: 5, WatermarkToken: "", MaxWatermarkHits: 0}

	if p.IsLowQuality(longText(5)) {
		t.Error("5 words should pass a MinWords=5 policy")
	}
	if !p.IsLowQuality(longText(4)) {
		t.Error("4 words should fail a MinWords=5 policy")
	}
	// disabled watermark check never counts hits
	if p.IsLowQuality(longText(10) + " essaypro essaypro essaypro essaypro") {
		t.Error("watermark check should be disabled with an empty token")
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	// "héllo" is 6 bytes, the é spans bytes 1 and 2
	got := preview("héllo", 2)
	if got != "h" {
		t.Errorf("got %q, expected truncation before the multi-byte rune", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("preview produced invalid utf-8: %q", got)
	}

	if got := preview("héllo", 3); got != "hé" {
		t.Errorf("got %q, expected %q", got, "hé")
	}
	if got := preview("héllo", 100); got != "héllo" {
		t.Errorf("got %q, expected the full string", got)
	}
}
