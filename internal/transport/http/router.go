// Package httptransport assembles the chi router: the shared middleware
// chain, the public read/write surface, and the admin-guarded destructive
// surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "github.com/mlongerich/DonationTracker-sub003/internal/auth/handler"
	donationhandler "github.com/mlongerich/DonationTracker-sub003/internal/donation/handler"
	donorhandler "github.com/mlongerich/DonationTracker-sub003/internal/donor/handler"
	ingesthandler "github.com/mlongerich/DonationTracker-sub003/internal/ingest/handler"
	lifecyclehandler "github.com/mlongerich/DonationTracker-sub003/internal/lifecycle/handler"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/middleware"
	sponsorshiphandler "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	Donations    *donationhandler.Handler
	Sponsorships *sponsorshiphandler.Handler
	Donors       *donorhandler.Handler
	Lifecycle    *lifecyclehandler.Handler
	Ingest       *ingesthandler.Handler

	// Auth is optional; without a configured operator secret the token
	// exchange endpoint is not mounted.
	Auth *authhandler.Handler

	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

// NewRouter wires all endpoints behind the shared middleware chain.
// Destructive routes (merge, archive, restore, hard delete, batch ingest)
// additionally require an admin bearer token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(latency(deps.Metrics))
	}
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		deps.Donations.Register(r)
		deps.Sponsorships.Register(r)
		deps.Donors.Register(r)
		if deps.Auth != nil {
			deps.Auth.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.TokenValidator, deps.Logger))
		deps.Donors.RegisterAdmin(r)
		deps.Lifecycle.RegisterAdmin(r)
		deps.Ingest.RegisterAdmin(r)
	})

	return r
}

// latency records request duration labelled by the chi route pattern rather
// than the raw path, keeping metric cardinality bounded.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestLatencySecond.
				WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
