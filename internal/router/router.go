package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/handler"
	mw "github.com/parisxmas/sangha/internal/middleware"
	"github.com/parisxmas/sangha/internal/models"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Form       *handler.FormHandler
	Submission *handler.SubmissionHandler
	Product    *handler.ProductHandler
	Checkout   *handler.CheckoutHandler
	Membership *handler.MembershipHandler
	Strapi     *handler.StrapiHandler
	Community  *handler.CommunityHandler
	Dashboard  *handler.DashboardHandler
	File       *handler.FileHandler
}

func New(jwtSecret string, log *zap.Logger, limiter *mw.RateLimiter, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log))
	r.Use(mw.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Use(auth.Optional(jwtSecret))

			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/login", h.Auth.Login)

			r.Get("/forms/{slug}", h.Form.Public)
			r.Post("/forms/{slug}/validate-page", h.Form.ValidatePage)
			r.Post("/forms/{slug}/submissions", h.Submission.Create)
			// Anonymous applicants attach files; keys are scoped to one
			// question of a published form and checked again on submit.
			r.Post("/forms/{slug}/files", h.File.Upload)

			r.Get("/checkout/{sessionId}/return", h.Checkout.Return)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/refresh", h.Auth.Refresh)

			// Checkout
			r.Post("/checkout/products/{productId}", h.Checkout.StartProduct)
			r.Post("/checkout/applications/{submissionId}", h.Checkout.StartApplication)
			r.Get("/checkout/{sessionId}", h.Checkout.Get)
			r.Post("/checkout/{sessionId}/sdk", h.Checkout.SDK)
			r.Post("/checkout/{sessionId}/pay", h.Checkout.Pay)
			r.Post("/checkout/{sessionId}/result", h.Checkout.Result)
			r.Post("/checkout/{sessionId}/retry", h.Checkout.Retry)

			// Store
			r.Get("/products", h.Product.Catalog)
			r.Get("/products/{id}", h.Product.View)

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))

				r.Get("/dashboard", h.Dashboard.Dashboard)
				r.Get("/audit", h.Dashboard.Audit)

				r.Get("/forms", h.Form.List)
				r.Post("/forms", h.Form.Create)
				r.Get("/forms/{formId}", h.Form.Get)
				r.Put("/forms/{formId}", h.Form.Update)
				r.Delete("/forms/{formId}", h.Form.Delete)
				r.Get("/forms/{formId}/submissions", h.Submission.List)
				r.Get("/submissions/{subId}", h.Submission.Get)
				r.Delete("/submissions/{subId}", h.Submission.Delete)
				r.Get("/files/{key}", h.File.Download)

				r.Get("/products", h.Product.List)
				r.Post("/products", h.Product.Create)
				r.Get("/products/{id}", h.Product.Get)
				r.Put("/products/{id}", h.Product.Update)
				r.Delete("/products/{id}", h.Product.Delete)

				r.Put("/users/{id}/membership", h.Membership.Update)

				r.Get("/strapi/users", h.Strapi.Users)
				r.Get("/strapi/instructors", h.Strapi.Instructors)
				r.Get("/strapi/courses", h.Strapi.Courses)
				r.Get("/strapi/schema/{uid}", h.Strapi.Schema)

				r.Get("/email/campaigns", h.Community.Campaigns)
				r.Get("/email/automations", h.Community.Automations)
				r.Get("/book-groups", h.Community.BookGroups)
			})
		})
	})

	return r
}
