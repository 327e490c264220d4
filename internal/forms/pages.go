package forms

import (
	"sort"

	"github.com/parisxmas/sangha/internal/models"
)

// Page is one step of a multi-page form.
type Page struct {
	Number    int                   `json:"number"`
	Questions []models.FormQuestion `json:"questions"`
}

// PageNumber normalizes a question's page; anything below 1 is page 1.
func PageNumber(q models.FormQuestion) int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

// GroupByPage splits questions into pages sorted by page number. Within a
// page questions are ordered by Order, ties keeping their original position.
// A template with no questions yields no pages.
func GroupByPage(questions []models.FormQuestion) []Page {
	byPage := map[int][]models.FormQuestion{}
	for _, q := range questions {
		n := PageNumber(q)
		byPage[n] = append(byPage[n], q)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		qs := byPage[n]
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
		pages = append(pages, Page{Number: n, Questions: qs})
	}
	return pages
}
