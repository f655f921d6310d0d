package extract

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/fumiama/go-docx"
)

// extractDocx concatenates all non-blank paragraph texts separated by
// newlines. Parse failures degrade to an empty result.
func (e *Extractor) extractDocx(doc Document) string {
	parsed, err := docx.Parse(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		slog.Warn("docx parse failed", "name", doc.Name, "err", err)
		return ""
	}

	var paragraphs []string
	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	text := strings.Join(paragraphs, "\n")
	slog.Debug("extracted docx content", "name", doc.Name, "length", len(text))
	return text
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
