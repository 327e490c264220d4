package models

import "time"

type QuestionType string

const (
	QuestionText      QuestionType = "text"
	QuestionEmail     QuestionType = "email"
	QuestionTel       QuestionType = "tel"
	QuestionDate      QuestionType = "date"
	QuestionNumber    QuestionType = "number"
	QuestionTextarea  QuestionType = "textarea"
	QuestionRadio     QuestionType = "radio"
	QuestionCheckbox  QuestionType = "checkbox"
	QuestionDropdown  QuestionType = "dropdown"
	QuestionFile      QuestionType = "file"
	QuestionHeading   QuestionType = "heading"
	QuestionParagraph QuestionType = "paragraph"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionEmail, QuestionTel, QuestionDate, QuestionNumber, QuestionTextarea,
		QuestionRadio, QuestionCheckbox, QuestionDropdown, QuestionFile, QuestionHeading, QuestionParagraph:
		return true
	}
	return false
}

// CollectsAnswer is false for display-only types.
func (t QuestionType) CollectsAnswer() bool {
	return t != QuestionHeading && t != QuestionParagraph
}

// HasOptions is true for types that pick from a fixed option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionRadio || t == QuestionCheckbox || t == QuestionDropdown
}

type FormQuestion struct {
	ID               string       `json:"id"`
	QuestionText     string       `json:"question_text"`
	QuestionType     QuestionType `json:"question_type"`
	IsRequired       bool         `json:"is_required"`
	Options          []string     `json:"options,omitempty"`
	SectionHeading   string       `json:"section_heading,omitempty"`
	Placeholder      string       `json:"placeholder,omitempty"`
	Description      string       `json:"description,omitempty"`
	AllowedFileTypes []string     `json:"allowed_file_types,omitempty"`
	Page             int          `json:"page,omitempty"`
	Order            int          `json:"order,omitempty"`
}

type FormTemplate struct {
	ID                   string         `json:"id"`
	Slug                 string         `json:"slug"`
	Title                string         `json:"title"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	Questions            []FormQuestion `json:"questions"`
	SuccessMessage       string         `json:"success_message,omitempty"`
	SuccessRedirect      string         `json:"success_redirect,omitempty"`
	RedirectDelaySeconds int            `json:"redirect_delay_seconds,omitempty"`
	RequiresPayment      bool           `json:"requires_payment"`
	PaymentAmount        int64          `json:"payment_amount,omitempty"` // minor units
	PaymentCurrency      string         `json:"payment_currency,omitempty"`
	IsActive             bool           `json:"is_active"`
	CreatedBy            string         `json:"created_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Question returns the question with the given id, or nil.
func (f *FormTemplate) Question(id string) *FormQuestion {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}
