package api

// DocumentPage holds the text recovered from a single page of a source
// document.
type DocumentPage struct {
	Index int
	Text  string
}

type DocumentContent struct {
	Pages []DocumentPage
}

// Text joins all page texts in page order, separated by newlines.
func (dc DocumentContent) Text() string {
	text := ""
	for i, page := range dc.Pages {
		if i > 0 {
			text += "\n"
		}
		text += page.Text
	}
	return text
}

type ScoredDocument struct {
	// Required
	Content string
	Score   float64

	// Optional
	Title string
}
