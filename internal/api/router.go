/**
 * @description
 * This file sets up the HTTP router for the momo-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * the standard middleware stack, including CORS for the static form
 * front-end served from another origin.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the browser front-end.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// TransferRoutes creates and returns the router for the transfer service.
func TransferRoutes(h *TransferHandlers) http.Handler {
	r := chi.NewRouter()

	// Standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// The form front-end is a static page served from another origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/donate", h.DonateHandler)
		r.Post("/save", h.SaveHandler)
		r.Post("/withdraw", h.WithdrawHandler)
		r.Get("/transaction/{referenceID}", h.GetTransactionHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
	})

	return r
}
