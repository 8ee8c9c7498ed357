package render

import (
	"bytes"
	"fmt"

	"carteirinha/internal/card"
)

// CardsPerPage is the fixed number of cards on one physical A4 sheet.
const CardsPerPage = 4

// PrintItem pairs one person's resolved card content with the layout chosen
// for that person. Associate and dependent layouts are assigned
// independently, so every item carries its own layout.
type PrintItem struct {
	Layout card.Layout
	Data   CardData
}

// RenderPreview renders a layout against placeholder content for the
// template editor. Hidden fields are absent from the output entirely.
func RenderPreview(layout card.Layout, data CardData) (string, error) {
	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, buildCardView(layout, data)); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

// Paginate splits print items into pages of CardsPerPage, preserving order.
// The last page holds whatever remains (1 to CardsPerPage cards).
func Paginate(items []PrintItem) [][]PrintItem {
	var pages [][]PrintItem
	for start := 0; start < len(items); start += CardsPerPage {
		end := start + CardsPerPage
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, items[start:end])
	}
	return pages
}

// RenderPrintDocument composes the paginated print document for a
// selection. N items yield ceil(N/4) pages in selection order.
func RenderPrintDocument(items []PrintItem) (string, error) {
	pages := make([][]cardView, 0, (len(items)+CardsPerPage-1)/CardsPerPage)
	for _, chunk := range Paginate(items) {
		page := make([]cardView, 0, len(chunk))
		for _, item := range chunk {
			page = append(page, buildCardView(item.Layout, item.Data))
		}
		pages = append(pages, page)
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, struct{ Pages [][]cardView }{pages}); err != nil {
		return "", fmt.Errorf("render print document: %w", err)
	}
	return buf.String(), nil
}
