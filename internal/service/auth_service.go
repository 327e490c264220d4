package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
)

type AuthService struct {
	users     *repository.UserRepo
	jwtSecret string
}

func NewAuthService(users *repository.UserRepo, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret}
}

// Profile is an account as its owner sees it. Tier is the tier in force
// today, which is Free once the stored membership has ended.
type Profile struct {
	models.UserResponse
	Tier    membership.Tier `json:"tier"`
	Expired bool            `json:"membershipExpired,omitempty"`
}

type AuthResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// memberTier is the user's effective tier at now, along with the stored
// tier it was derived from.
func memberTier(u *models.User, now time.Time) (effective, stored membership.Tier) {
	stored, err := membership.ParseTier(u.MembershipTier)
	if err != nil {
		stored = membership.Free
	}
	return membership.Effective(stored, u.MembershipEnd, now), stored
}

func newProfile(u *models.User) Profile {
	tier, stored := memberTier(u, time.Now())
	return Profile{
		UserResponse: u.ToResponse(),
		Tier:         tier,
		Expired:      tier != stored,
	}
}

// issue signs a token carrying the effective tier, so a lapsed membership
// stops unlocking member prices at the next login or refresh.
func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	profile := newProfile(user)
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role, string(profile.Tier))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: profile}, nil
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 6 {
		return nil, invalidf("password must be at least 6 characters")
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           strings.TrimSpace(name),
		Role:           models.RoleUser,
		MembershipTier: string(membership.Free),
		CreatedAt:      time.Now().UTC(),
	}
	id, err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	user.ID = id
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return s.issue(user)
}

func (s *AuthService) user(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := newProfile(user)
	return &profile, nil
}

// Refresh reissues the caller's token after a membership change.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*AuthResult, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// SeedAdmin creates the admin account unless the email is already taken.
// It reports whether a user was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	user := &models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           "Admin",
		Role:           models.RoleAdmin,
		MembershipTier: string(membership.Free),
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}
