package forms

import (
	"errors"

	"github.com/parisxmas/sangha/internal/models"
)

var ErrNoPages = errors.New("form has no questions")

// Wizard walks a template page by page. It holds the answers collected so
// far and the errors of the last blocked navigation.
type Wizard struct {
	pages   []Page
	current int // index into pages
	Answers map[string]any
	Errors  Errors
}

func NewWizard(tmpl *models.FormTemplate) (*Wizard, error) {
	pages := GroupByPage(tmpl.Questions)
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return &Wizard{pages: pages, Answers: map[string]any{}}, nil
}

func (w *Wizard) Pages() []Page { return w.pages }

func (w *Wizard) Current() Page { return w.pages[w.current] }

// Step is the 1-based position of the current page.
func (w *Wizard) Step() int { return w.current + 1 }

func (w *Wizard) IsLast() bool { return w.current == len(w.pages)-1 }

// Load replaces the collected answers, e.g. with a client's full answer map.
func (w *Wizard) Load(answers map[string]any) {
	w.Answers = make(map[string]any, len(answers))
	for k, v := range answers {
		w.Answers[k] = v
	}
	w.Errors = nil
}

// Goto moves to the page with the given number. It reports false, leaving
// the position unchanged, when the form has no such page.
func (w *Wizard) Goto(number int) bool {
	for i, p := range w.pages {
		if p.Number == number {
			w.current = i
			w.Errors = nil
			return true
		}
	}
	return false
}

// Set records an answer and clears that question's error.
func (w *Wizard) Set(questionID string, value any) {
	w.Answers[questionID] = value
	delete(w.Errors, questionID)
}

// Next advances one page. It is blocked, returning the page errors, while a
// required question on the current page is empty.
func (w *Wizard) Next() Errors {
	if errs := ValidatePage(w.Current(), w.Answers); errs != nil {
		w.Errors = errs
		return errs
	}
	w.Errors = nil
	if !w.IsLast() {
		w.current++
	}
	return nil
}

// Prev goes back one page without validating.
func (w *Wizard) Prev() {
	w.Errors = nil
	if w.current > 0 {
		w.current--
	}
}

// Submit validates every page. On failure the wizard jumps to the first
// failing page and returns its errors.
func (w *Wizard) Submit() Errors {
	for i, page := range w.pages {
		if errs := ValidatePage(page, w.Answers); errs != nil {
			w.current = i
			w.Errors = errs
			return errs
		}
	}
	w.Errors = nil
	return nil
}
