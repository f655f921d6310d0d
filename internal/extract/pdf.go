package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alan-mat/saidia/internal/api"
	pdflib "github.com/ledongthuc/pdf"
)

// pdfLayoutText extracts per-page text in page order using the layout-aware
// reader. The library panics on some malformed files, so the stage recovers
// and reports those as ordinary errors.
func pdfLayoutText(data []byte) (content *api.DocumentContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	content = &api.DocumentContent{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.Pages = append(content.Pages, api.DocumentPage{
			Index: i,
			Text:  text,
		})
	}

	return content, nil
}

// pdfAnnotations walks every page's annotation objects and collects their
// text contents, page by page. A failure here never affects body text.
func pdfAnnotations(data []byte) (notes []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			notes = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		annots := page.V.Key("Annots")
		if annots.Kind() != pdflib.Array {
			continue
		}

		for j := 0; j < annots.Len(); j++ {
			contents := annots.Index(j).Key("Contents")
			if contents.Kind() != pdflib.String {
				continue
			}
			if t := strings.TrimSpace(contents.Text()); t != "" {
				notes = append(notes, t)
			}
		}
	}

	return notes, nil
}
