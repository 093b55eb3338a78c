package apigateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "pong-lobby"

// Handlers are the endpoints the router dispatches to.
type Handlers struct {
	Queue http.Handler // /ws/pong-lobby
	Match http.Handler // /ws/match/{matchID}
	Guest http.HandlerFunc
}

// CORSConfig feeds rs/cors.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}
}

// NewRouter routes queue connections to the single Queue actor and match
// connections to the Match actor named in the path.
func NewRouter(h Handlers, corsCfg CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", handleHealth)
	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/pong-lobby", h.Queue.ServeHTTP)
	r.Get("/ws/match/{matchID:[a-zA-Z0-9-]+}", h.Match.ServeHTTP)

	// Upgraded connections outlive any request timeout, so it only wraps the API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		if h.Guest != nil {
			r.Post("/guest", h.Guest)
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins: corsCfg.AllowedOrigins,
		AllowedMethods: corsCfg.AllowedMethods,
		AllowedHeaders: corsCfg.AllowedHeaders,
	})
	return c.Handler(r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": ServiceName})
}
