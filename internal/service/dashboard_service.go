package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/sangha/internal/backend"
	"github.com/parisxmas/sangha/internal/repository"
)

// CommunityBackend is the email/community service as the dashboard sees it.
type CommunityBackend interface {
	ListCampaigns(ctx context.Context, token string) ([]backend.Record, error)
	ListAutomations(ctx context.Context, token string) ([]backend.Record, error)
	ListBookGroups(ctx context.Context, token string) ([]backend.Record, error)
}

type DashboardService struct {
	users   *repository.UserRepo
	forms   *repository.FormRepo
	subs    *repository.SubmissionRepo
	orders  *repository.OrderRepo
	backend CommunityBackend
	log     *zap.Logger
}

func NewDashboardService(users *repository.UserRepo, forms *repository.FormRepo, subs *repository.SubmissionRepo, orders *repository.OrderRepo, backend CommunityBackend, log *zap.Logger) *DashboardService {
	return &DashboardService{users: users, forms: forms, subs: subs, orders: orders, backend: backend, log: log}
}

type FormStat struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	SubmissionCount int    `json:"submissionCount"`
	QuestionCount   int    `json:"questionCount"`
	IsActive        bool   `json:"isActive"`
}

type Dashboard struct {
	UserCount       int                    `json:"userCount"`
	UsersByTier     map[string]int         `json:"usersByTier"`
	FormCount       int                    `json:"formCount"`
	SubmissionCount int                    `json:"submissionCount"`
	Forms           []FormStat             `json:"forms"`
	Orders          *repository.OrderStats `json:"orders"`
	Campaigns       int                    `json:"campaignCount"`
	Automations     int                    `json:"automationCount"`
	BookGroups      int                    `json:"bookGroupCount"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// Summary gathers local counts and the community backend's listings in
// parallel. Local failures fail the call; backend failures only add a
// warning.
func (s *DashboardService) Summary(ctx context.Context, token string) (*Dashboard, error) {
	d := &Dashboard{}
	var mu sync.Mutex
	warn := func(what string, err error) {
		s.log.Warn("dashboard source failed", zap.String("source", what), zap.Error(err))
		mu.Lock()
		d.Warnings = append(d.Warnings, what+" unavailable")
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.UserCount, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.UsersByTier, err = s.users.CountByTier(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.SubmissionCount, err = s.subs.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Orders, err = s.orders.Stats(gctx)
		return err
	})
	g.Go(func() error {
		forms, err := s.forms.FindAll(gctx)
		if err != nil {
			return err
		}
		stats := make([]FormStat, 0, len(forms))
		for _, f := range forms {
			n, err := s.subs.CountByFormID(gctx, f.ID)
			if err != nil {
				return err
			}
			stats = append(stats, FormStat{
				ID:              f.ID,
				Title:           f.Title,
				Slug:            f.Slug,
				SubmissionCount: n,
				QuestionCount:   len(f.Questions),
				IsActive:        f.IsActive,
			})
		}
		d.FormCount = len(forms)
		d.Forms = stats
		return nil
	})

	if s.backend != nil {
		// backend calls use ctx, not gctx, so a local failure does not
		// cancel them mid-flight and their own errors never cancel gctx
		remote := []struct {
			name string
			list func(context.Context, string) ([]backend.Record, error)
			dst  *int
		}{
			{"campaigns", s.backend.ListCampaigns, &d.Campaigns},
			{"automations", s.backend.ListAutomations, &d.Automations},
			{"book groups", s.backend.ListBookGroups, &d.BookGroups},
		}
		for _, r := range remote {
			r := r
			g.Go(func() error {
				recs, err := r.list(ctx, token)
				if err != nil {
					warn(r.name, err)
					return nil
				}
				*r.dst = len(recs)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
