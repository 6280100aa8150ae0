package api

import (
	"database/sql"
	"net/http"

	"github.com/tharanis13/campus-lost-found/internal/model"
	"github.com/tharanis13/campus-lost-found/internal/realtime"
)

// NewRouter creates the API router with all endpoints registered.
// Browsing is public; reporting, claiming, and matching require a
// token; the admin surface requires the admin role.
func NewRouter(db *sql.DB, jwtSecret, uploadsDir string, hub *realtime.Hub) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db, Hub: hub, UploadsDir: uploadsDir}
	adminHandler := &AdminHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: registration, login, browsing.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)

	// Authenticated routes.
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("POST /api/items/{id}/claim", authMW(http.HandlerFunc(itemsHandler.Claim)))
	mux.Handle("GET /api/items/{id}/matches", authMW(http.HandlerFunc(itemsHandler.Matches)))
	mux.Handle("PUT /api/items/{id}/claims/{claimId}", authMW(http.HandlerFunc(itemsHandler.DecideClaim)))

	// Admin only.
	mux.Handle("GET /api/admin/stats", authMW(requireAdmin(http.HandlerFunc(adminHandler.Stats))))
	mux.Handle("GET /api/admin/users", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("GET /api/admin/items", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListItems))))
	mux.Handle("PUT /api/admin/items/{id}/status", authMW(requireAdmin(http.HandlerFunc(adminHandler.UpdateItemStatus))))
	mux.Handle("DELETE /api/admin/users/{id}", authMW(requireAdmin(http.HandlerFunc(adminHandler.DeleteUser))))

	// Uploaded images and the realtime channel.
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
	mux.Handle("GET /ws", &realtime.Handler{Hub: hub})

	return mux
}
