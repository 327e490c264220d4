package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
)

type ProductService struct {
	products *repository.ProductRepo
	audit    *AuditService
}

func NewProductService(products *repository.ProductRepo, audit *AuditService) *ProductService {
	return &ProductService{products: products, audit: audit}
}

// ProductView is a product with the price the viewing member pays.
type ProductView struct {
	models.Product
	MemberPrice int64 `json:"member_price"`
}

func view(p models.Product, tier membership.Tier) ProductView {
	return ProductView{Product: p, MemberPrice: membership.ApplyDiscount(p.Price, tier, p.Discounts)}
}

func checkProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	switch {
	case p.Name == "":
		return invalidf("product name is required")
	case p.Price <= 0:
		return invalidf("product price must be positive")
	case len(p.Currency) != 3:
		return invalidf("currency must be a 3-letter code")
	}
	if len(p.Discounts) == 0 {
		return nil
	}
	// keys are stored in canonical tier form so ApplyDiscount finds them
	canon := make(map[string]int, len(p.Discounts))
	for name, pct := range p.Discounts {
		tier, err := membership.ParseTier(name)
		if err != nil {
			return invalidf("discount tier %q", name)
		}
		if pct < 0 || pct > 100 {
			return invalidf("discount for %s must be 0-100", name)
		}
		canon[string(tier)] = pct
	}
	p.Discounts = canon
	return nil
}

func (s *ProductService) Create(ctx context.Context, actorID string, p *models.Product) (*models.Product, error) {
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	if p.Slug == "" {
		p.Slug = generateSlug(p.Name)
	} else {
		p.Slug = generateSlug(p.Slug)
	}
	now := time.Now().UTC()
	p.ID = ""
	p.CreatedAt = now
	p.UpdatedAt = now

	id, err := s.products.Create(ctx, p)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("product slug %s: %w", p.Slug, ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	p.ID = id
	s.audit.Record(ctx, actorID, "product.create", "product", id, p.Name)
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFoundf("product %s", id)
	}
	return p, nil
}

// ListAll is the admin listing, inactive products included.
func (s *ProductService) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.products.FindAll(ctx, false)
}

// Catalog lists active products priced for tier.
func (s *ProductService) Catalog(ctx context.Context, tier membership.Tier) ([]ProductView, error) {
	products, err := s.products.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, view(p, tier))
	}
	return out, nil
}

// View returns one active product priced for tier.
func (s *ProductService) View(ctx context.Context, id string, tier membership.Tier) (*ProductView, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, notFoundf("product %s", id)
	}
	v := view(*p, tier)
	return &v, nil
}

func (s *ProductService) Update(ctx context.Context, actorID, id string, p *models.Product) (*models.Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.Slug = existing.Slug
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, "product.update", "product", id, p.Name)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actorID, "product.delete", "product", id, "")
	return nil
}
