/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*          Users, balances, history, adjustments
  /api/families/*       Family membership
  /api/tasks/*          Task definitions
  /api/assignments/*    Assignment workflow
  /api/goals/*          Goal engine
  /api/store/*          Reward store catalog
  /api/purchases/*      Purchase redemption
  /api/statistics       Family goal rollup

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/adjustments", h.CreateAdjustment)
			r.Get("/{id}/purchases", h.ListPurchases)
		})

		r.Get("/families/{id}/members", h.ListFamilyMembers)

		// Task routes
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/{id}", h.GetTask)
			r.Post("/{id}/status", h.SetTaskStatus)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/{id}/complete", h.CompleteAssignment)
			r.Post("/{id}/approve", h.ApproveAssignment)
			r.Post("/{id}/reject", h.RejectAssignment)
		})

		// Goal routes
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.ListGoals)
			r.Post("/", h.CreateGoal)
			r.Post("/store-item", h.CreateStoreItemGoal)
			r.Get("/{id}", h.GetGoal)
			r.Put("/{id}", h.UpdateGoal)
			r.Delete("/{id}", h.DeleteGoal)
			r.Post("/{id}/pause", h.PauseGoal)
			r.Post("/{id}/resume", h.ResumeGoal)
			r.Post("/{id}/cancel", h.CancelGoal)
			r.Get("/{id}/progress", h.GetGoalProgress)
			r.Get("/{id}/achievements", h.ListGoalAchievements)
		})

		// Store routes
		r.Route("/store/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Post("/{id}/availability", h.SetItemAvailability)
			r.Post("/{id}/purchase", h.PurchaseItem)
		})

		r.Post("/purchases/{id}/use", h.MarkPurchaseUsed)

		r.Get("/statistics", h.GetStatistics)
	})

	return r
}
