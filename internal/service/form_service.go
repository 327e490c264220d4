package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/parisxmas/sangha/internal/forms"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
)

type FormService struct {
	forms *repository.FormRepo
	audit *AuditService
}

func NewFormService(forms *repository.FormRepo, audit *AuditService) *FormService {
	return &FormService{forms: forms, audit: audit}
}

// PublicForm is a published template with its questions grouped into pages.
type PublicForm struct {
	*models.FormTemplate
	Pages []forms.Page `json:"pages"`
}

func (s *FormService) uniqueSlug(ctx context.Context, base, selfID string) (string, error) {
	slug := generateSlug(base)
	existing, err := s.forms.FindBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.ID != selfID {
		slug = slug + "-" + time.Now().Format("20060102150405")
	}
	return slug, nil
}

func (s *FormService) Create(ctx context.Context, createdBy string, tmpl *models.FormTemplate) (*models.FormTemplate, error) {
	if err := forms.Prepare(tmpl); err != nil {
		return nil, err
	}
	base := tmpl.Slug
	if base == "" {
		base = tmpl.Title
	}
	slug, err := s.uniqueSlug(ctx, base, "")
	if err != nil {
		return nil, err
	}
	if tmpl.Name == "" {
		tmpl.Name = tmpl.Title
	}

	now := time.Now().UTC()
	tmpl.ID = ""
	tmpl.Slug = slug
	tmpl.CreatedBy = createdBy
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	id, err := s.forms.Create(ctx, tmpl)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("form slug %s: %w", slug, ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	tmpl.ID = id
	s.audit.Record(ctx, createdBy, "form.create", "form", id, tmpl.Title)
	return tmpl, nil
}

func (s *FormService) List(ctx context.Context) ([]models.FormTemplate, error) {
	return s.forms.FindAll(ctx)
}

func (s *FormService) Get(ctx context.Context, id string) (*models.FormTemplate, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, notFoundf("form %s", id)
	}
	return form, nil
}

// Published looks a form up by slug. Inactive forms are hidden.
func (s *FormService) Published(ctx context.Context, slug string) (*models.FormTemplate, error) {
	form, err := s.forms.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if form == nil || !form.IsActive {
		return nil, notFoundf("form %s", slug)
	}
	return form, nil
}

func (s *FormService) Public(ctx context.Context, slug string) (*PublicForm, error) {
	form, err := s.Published(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &PublicForm{FormTemplate: form, Pages: forms.GroupByPage(form.Questions)}, nil
}

// ValidatePage is the wizard's Next on one page: it returns a
// *ValidationError when a required question on that page is unanswered.
func (s *FormService) ValidatePage(ctx context.Context, slug string, page int, answers map[string]any) error {
	w, err := s.wizard(ctx, slug)
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}
	if !w.Goto(page) {
		return invalidf("form %s has no page %d", slug, page)
	}
	w.Load(answers)
	if errs := w.Next(); errs != nil {
		return &ValidationError{Page: page, Errors: errs}
	}
	return nil
}

// wizard opens a published form for page-by-page answering.
func (s *FormService) wizard(ctx context.Context, slug string) (*forms.Wizard, error) {
	form, err := s.Published(ctx, slug)
	if err != nil {
		return nil, err
	}
	w, err := forms.NewWizard(form)
	if errors.Is(err, forms.ErrNoPages) {
		return nil, invalidf("form %s has no questions", slug)
	}
	return w, err
}

func (s *FormService) Update(ctx context.Context, actorID, id string, tmpl *models.FormTemplate) (*models.FormTemplate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := forms.Prepare(tmpl); err != nil {
		return nil, err
	}
	tmpl.ID = existing.ID
	tmpl.Slug = existing.Slug
	tmpl.CreatedBy = existing.CreatedBy
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UpdatedAt = time.Now().UTC()
	if tmpl.Name == "" {
		tmpl.Name = tmpl.Title
	}

	if err := s.forms.Update(ctx, tmpl); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, "form.update", "form", id, tmpl.Title)
	return tmpl, nil
}

func (s *FormService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.forms.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actorID, "form.delete", "form", id, "")
	return nil
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "form"
	}
	return slug
}
