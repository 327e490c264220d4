package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
	"github.com/parisxmas/sangha/internal/strapi"
)

// CMS is the part of the Strapi client membership updates need.
type CMS interface {
	FindUserByEmail(ctx context.Context, email string) (*strapi.User, error)
	UpdateUser(ctx context.Context, id int, upd strapi.MembershipUpdate) (*strapi.User, error)
}

type MembershipService struct {
	users *repository.UserRepo
	cms   CMS
	audit *AuditService
	log   *zap.Logger
	now   func() time.Time
}

func NewMembershipService(users *repository.UserRepo, cms CMS, audit *AuditService, log *zap.Logger) *MembershipService {
	return &MembershipService{users: users, cms: cms, audit: audit, log: log, now: time.Now}
}

type MembershipRequest struct {
	Plan      string `json:"plan"`
	Billing   string `json:"billing"`
	TrialDays int    `json:"trialDays"`
}

// Update derives the tier and period from the plan name, writes them to the
// member's Strapi account and then to the local user.
func (s *MembershipService) Update(ctx context.Context, actorID, userID string, req MembershipRequest) (*models.UserResponse, error) {
	if req.TrialDays < 0 {
		return nil, invalidf("trialDays must not be negative")
	}
	billing := membership.Monthly
	if req.Billing != "" {
		b, err := membership.ParseBilling(req.Billing)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
		}
		billing = b
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}

	period := membership.NewPeriod(req.Plan, billing, req.TrialDays, s.now().UTC())
	start := period.Start.Format(membership.DateLayout)
	end := period.End.Format(membership.DateLayout)

	strapiID, err := s.cmsAccount(ctx, user)
	if err != nil {
		return nil, err
	}
	if _, err := s.cms.UpdateUser(ctx, strapiID, strapi.MembershipUpdate{
		Membership:          string(period.Tier),
		MembershipStartDate: start,
		MembershipEndDate:   end,
		IsTrial:             period.IsTrial,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	user.StrapiID = strconv.Itoa(strapiID)
	user.MembershipTier = string(period.Tier)
	user.MembershipStart = start
	user.MembershipEnd = end
	user.IsTrial = period.IsTrial
	if err := s.users.UpdateMembership(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("membership updated",
		zap.String("user", user.ID),
		zap.String("tier", user.MembershipTier),
		zap.String("end", end),
		zap.Bool("trial", user.IsTrial))
	s.audit.Record(ctx, actorID, "membership.update", "user", user.ID,
		fmt.Sprintf("%s until %s (trial=%t)", user.MembershipTier, end, user.IsTrial))

	resp := user.ToResponse()
	return &resp, nil
}

// cmsAccount resolves the member's Strapi id, looking it up by email the
// first time.
func (s *MembershipService) cmsAccount(ctx context.Context, user *models.User) (int, error) {
	if user.StrapiID != "" {
		if id, err := strconv.Atoi(user.StrapiID); err == nil {
			return id, nil
		}
	}
	acct, err := s.cms.FindUserByEmail(ctx, user.Email)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if acct == nil {
		return 0, notFoundf("strapi account for %s", user.Email)
	}
	return acct.ID, nil
}
