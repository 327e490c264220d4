package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parisxmas/sangha/internal/forms"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
)

type SubmissionService struct {
	subs  *repository.SubmissionRepo
	forms *FormService
	files *FileService
}

func NewSubmissionService(subs *repository.SubmissionRepo, forms *FormService, files *FileService) *SubmissionService {
	return &SubmissionService{subs: subs, forms: forms, files: files}
}

// SubmitResult is what the client shows after a successful submission.
// RedirectURL and RedirectDelay are set only when the form redirects.
type SubmitResult struct {
	Submission      *models.Submission `json:"submission"`
	SuccessMessage  string             `json:"success_message,omitempty"`
	RedirectURL     string             `json:"redirect_url,omitempty"`
	RedirectDelay   int                `json:"redirect_delay_seconds,omitempty"`
	RequiresPayment bool               `json:"requires_payment"`
}

// Submit validates every page of the answers, checks answer types against
// the template and stores the submission. Forms that require payment start
// in payment_pending.
func (s *SubmissionService) Submit(ctx context.Context, slug, userID, userEmail string, answers map[string]any) (*SubmitResult, error) {
	form, err := s.forms.Published(ctx, slug)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string]any{}
	}
	w, err := forms.NewWizard(form)
	if errors.Is(err, forms.ErrNoPages) {
		return nil, invalidf("form %s has no questions", slug)
	}
	if err != nil {
		return nil, err
	}
	w.Load(answers)
	if errs := w.Submit(); errs != nil {
		return nil, &ValidationError{Page: w.Current().Number, Errors: errs}
	}
	if err := forms.CheckAnswerTypes(form, answers); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
	}

	clean := map[string]any{}
	var files []string
	email := userEmail
	for _, q := range form.Questions {
		v, ok := answers[q.ID]
		if !ok || !q.QuestionType.CollectsAnswer() {
			continue
		}
		clean[q.ID] = v
		switch q.QuestionType {
		case models.QuestionFile:
			if key, ok := v.(string); ok && key != "" {
				if err := s.files.Attached(ctx, form, q, key); err != nil {
					return nil, err
				}
				files = append(files, key)
			}
		case models.QuestionEmail:
			if str, ok := v.(string); ok && email == "" {
				email = strings.TrimSpace(str)
			}
		}
	}

	status := models.SubmissionSubmitted
	if form.RequiresPayment {
		status = models.SubmissionPaymentPending
	}
	now := time.Now().UTC()
	sub := &models.Submission{
		FormID:    form.ID,
		Answers:   clean,
		Files:     files,
		UserID:    userID,
		Email:     email,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.subs.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = id

	res := &SubmitResult{
		Submission:      sub,
		SuccessMessage:  form.SuccessMessage,
		RequiresPayment: form.RequiresPayment,
	}
	if form.SuccessRedirect != "" {
		res.RedirectURL = form.SuccessRedirect
		res.RedirectDelay = form.RedirectDelaySeconds
		if res.RedirectDelay <= 0 {
			res.RedirectDelay = forms.DefaultRedirectDelay
		}
	}
	return res, nil
}

func (s *SubmissionService) List(ctx context.Context, formID string, skip, limit int) ([]models.Submission, int, error) {
	if _, err := s.forms.Get(ctx, formID); err != nil {
		return nil, 0, err
	}
	return s.subs.FindByFormID(ctx, formID, skip, limit)
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, notFoundf("submission %s", id)
	}
	return sub, nil
}

func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.subs.Delete(ctx, id)
}

// MarkPaid moves a payment_pending submission to paid. Already paid is a
// no-op.
func (s *SubmissionService) MarkPaid(ctx context.Context, id string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == models.SubmissionPaid {
		return nil
	}
	return s.subs.UpdateStatus(ctx, id, models.SubmissionPaid)
}

func (s *SubmissionService) CountByForm(ctx context.Context, formID string) (int, error) {
	return s.subs.CountByFormID(ctx, formID)
}
