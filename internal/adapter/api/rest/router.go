package rest

import (
	"net/http"
)

// NewRouter registers the API routes. requireAuth guards the todo and
// /users/me routes; limit guards signup and login.
func NewRouter(todoH *TodoHandler, authH *AuthHandler, healthH *HealthHandler, requireAuth, limit Middleware, mws ...Middleware) http.Handler {
	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("GET /healthz", healthH.Healthz)
	mux.HandleFunc("GET /readyz", healthH.Readyz)

	// Auth Routes (Public, rate limited)
	mux.Handle("POST /users", limit(http.HandlerFunc(authH.SignUp)))
	mux.Handle("POST /users/login", limit(http.HandlerFunc(authH.Login)))

	// Protected Routes
	mux.Handle("GET /users/me", requireAuth(http.HandlerFunc(authH.Me)))
	mux.Handle("DELETE /users/me/token", requireAuth(http.HandlerFunc(authH.Logout)))

	mux.Handle("POST /todos", requireAuth(http.HandlerFunc(todoH.Create)))
	mux.Handle("GET /todos", requireAuth(http.HandlerFunc(todoH.List)))
	mux.Handle("GET /todos/{id}", requireAuth(http.HandlerFunc(todoH.Get)))
	mux.Handle("DELETE /todos/{id}", requireAuth(http.HandlerFunc(todoH.Delete)))
	mux.Handle("PATCH /todos/{id}", requireAuth(http.HandlerFunc(todoH.Update)))

	// Documentation
	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "api/openapi.yaml")
	})

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "api/swagger.html")
	})

	// Wrap with middleware
	return Chain(mux, mws...)
}
