// Package server assembles the HTTP surface: middleware chain, public,
// authenticated and admin route groups, and the operational endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libraryapi/internal/auth"
	"libraryapi/internal/book"
	"libraryapi/internal/borrow"
	"libraryapi/internal/httpx"
	"libraryapi/internal/ingest"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Logger    *slog.Logger
	JWTSecret string
	Blacklist httpx.BlacklistChecker
	DB        Pinger

	Books    *book.HTTPHandler
	Borrows  *borrow.HTTPHandler
	Users    *user.HTTPHandler
	Auth     *auth.HTTPHandler
	Sessions *session.HTTPHandler
	Imports  *ingest.HTTPHandler

	Metrics      http.Handler
	ObserveHTTP  httpx.RequestObserver
	RateLimit    func(http.Handler) http.Handler
	CORSOrigins  []string
	EnableHSTS   bool
	MaxBodyBytes int64
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(httpx.RequestIDMiddleware)
	r.Use(httpx.AccessLogMiddleware(d.Logger, d.ObserveHTTP))
	r.Use(httpx.RecoveryMiddleware(d.Logger))
	r.Use(httpx.SecurityHeadersMiddleware(d.EnableHSTS))
	r.Use(httpx.CORSMiddleware(d.CORSOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(httpx.RequestSizeLimitMiddleware(d.MaxBodyBytes))
	}
	if d.RateLimit != nil {
		r.Use(d.RateLimit)
	}

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.NotFound(w, r, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Public
	r.Get("/books", d.Books.List)
	r.Get("/books/search", d.Books.Search)
	r.Get("/books/available", d.Books.ListAvailable)
	r.Get("/books/{id}", d.Books.Get)
	r.Post("/users/register", d.Users.RegisterUser)
	r.Post("/users/login", d.Auth.Login)
	r.Post("/auth/refresh", d.Auth.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(httpx.AuthMiddleware(d.JWTSecret, d.Blacklist))

		r.Post("/auth/logout", d.Auth.Logout)

		r.Get("/me", d.Users.GetCurrentUser)
		r.Get("/me/borrows", d.Borrows.MyBorrows)
		r.Get("/me/sessions", d.Sessions.ListSessions)
		r.Delete("/me/sessions/{id}", d.Sessions.DeleteSession)
		r.Get("/users/{id}", d.Users.GetUser)

		r.Post("/borrow", d.Borrows.Borrow)
		r.Post("/borrow/{userId}/{bookId}", d.Borrows.BorrowByPath)
		r.Post("/return", d.Borrows.Return)
		r.Post("/borrow/return/{borrowId}", d.Borrows.ReturnByPath)
		r.Put("/borrow/return/{borrowId}", d.Borrows.ReturnByPath)
		r.Get("/borrow/{id}", d.Borrows.Get)

		r.Group(func(r chi.Router) {
			r.Use(httpx.RequireRole(httpx.RoleAdmin))

			r.Get("/borrow", d.Borrows.List)
			r.Get("/borrow/overdue", d.Borrows.Overdue)
			r.Get("/stats", d.Borrows.Stats)
			r.Get("/users", d.Users.ListUsers)
			r.Delete("/users/{id}", d.Users.DeleteUser)

			r.Post("/books", d.Books.Create)
			r.Post("/books/import", d.Books.Import)
			r.Post("/books/import/batch", d.Imports.Start)
			r.Get("/books/import/runs/{id}", d.Imports.Get)
			r.Put("/books/{id}", d.Books.Update)
			r.Delete("/books/{id}", d.Books.Delete)
		})
	})

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readyz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
