package server

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

const adminSecretHeader = "X-Admin-Secret"

type removedResponse struct {
	Removed int `json:"removed"`
}

type sessionsResponse struct {
	Count     int            `json:"count"`
	Languages map[string]int `json:"languages"`
}

func registerAdminRoutes(mux *http.ServeMux, deps Deps) {
	guard := func(available bool, next http.HandlerFunc) http.HandlerFunc {
		return requireAdminSecret(deps.AdminSecret, requireAvailable(available, next))
	}
	hasCache := deps.Cache != nil
	hasRegistry := deps.Registry != nil

	mux.HandleFunc("GET /admin/cache/stats", guard(hasCache, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Cache.Stats())
	}))
	mux.HandleFunc("POST /admin/cache/clear", guard(hasCache, func(w http.ResponseWriter, r *http.Request) {
		removed := deps.Cache.Clear()
		log.Printf("chat: admin cleared %d cached translations", removed)
		writeJSON(w, http.StatusOK, removedResponse{Removed: removed})
	}))
	mux.HandleFunc("POST /admin/cache/prune", guard(hasCache, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, removedResponse{Removed: deps.Cache.PurgeExpired()})
	}))
	mux.HandleFunc("GET /admin/sessions", guard(hasRegistry, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionsResponse{
			Count:     deps.Registry.Len(),
			Languages: deps.Registry.Languages(),
		})
	}))
}

// requireAdminSecret rejects requests unless the admin secret is configured
// and presented.
func requireAdminSecret(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := strings.TrimSpace(secret)
		if secret == "" {
			http.Error(w, "admin endpoints are disabled", http.StatusServiceUnavailable)
			return
		}
		presented := r.Header.Get(adminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			http.Error(w, "admin secret required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func requireAvailable(available bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available {
			http.Error(w, "admin endpoint is not configured", http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("chat: write admin response: %v", err)
	}
}
