package forms

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/parisxmas/sangha/internal/models"
)

// DefaultRedirectDelay is the pause, in seconds, before the client follows
// success_redirect.
const DefaultRedirectDelay = 3

var (
	policyOnce sync.Once
	richPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		richPolicy = bluemonday.UGCPolicy()
		textPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, textPolicy
}

// plain strips all markup. The strict policy escapes entities, which the
// client escapes again on render, so they are decoded back to text here.
func plain(p *bluemonday.Policy, s string) string {
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}

// TemplateError lists authoring problems found by Prepare.
type TemplateError struct {
	Problems []string
}

func (e *TemplateError) Error() string {
	return "invalid form template: " + strings.Join(e.Problems, "; ")
}

// Prepare normalizes a template for storage: it assigns missing question
// ids, sanitizes text, defaults the redirect delay, and rejects unknown
// question types, duplicate ids and option questions without options.
func Prepare(tmpl *models.FormTemplate) error {
	rich, text := policies()
	var problems []string

	tmpl.Title = plain(text, tmpl.Title)
	tmpl.Description = rich.Sanitize(tmpl.Description)
	tmpl.SuccessMessage = rich.Sanitize(tmpl.SuccessMessage)
	if tmpl.Title == "" {
		problems = append(problems, "title is required")
	}
	if len(tmpl.Questions) == 0 {
		problems = append(problems, "at least one question is required")
	}
	if tmpl.SuccessRedirect != "" && tmpl.RedirectDelaySeconds <= 0 {
		tmpl.RedirectDelaySeconds = DefaultRedirectDelay
	}
	if tmpl.RequiresPayment && (tmpl.PaymentAmount <= 0 || tmpl.PaymentCurrency == "") {
		problems = append(problems, "payment amount and currency are required when payment is required")
	}

	seen := map[string]bool{}
	for i := range tmpl.Questions {
		q := &tmpl.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if seen[q.ID] {
			problems = append(problems, fmt.Sprintf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = true

		if !q.QuestionType.Valid() {
			problems = append(problems, fmt.Sprintf("question %q: unknown type %q", q.ID, q.QuestionType))
			continue
		}
		if q.QuestionType == models.QuestionParagraph {
			q.QuestionText = rich.Sanitize(q.QuestionText)
		} else {
			q.QuestionText = plain(text, q.QuestionText)
		}
		q.SectionHeading = plain(text, q.SectionHeading)
		q.Placeholder = plain(text, q.Placeholder)
		q.Description = rich.Sanitize(q.Description)
		if q.Page < 1 {
			q.Page = 1
		}
		if !q.QuestionType.CollectsAnswer() {
			q.IsRequired = false
		}
		if q.QuestionType.HasOptions() && len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %q: %s needs at least one option", q.ID, q.QuestionType))
		}
	}

	if len(problems) > 0 {
		return &TemplateError{Problems: problems}
	}
	return nil
}
