package main

import (
	"net/http"
	"strings"

	"crowdqueue/internal/app/queue"
	"crowdqueue/internal/app/requests"
	"crowdqueue/internal/app/votes"
	"crowdqueue/internal/httpapi"
	"crowdqueue/internal/identity"
	"crowdqueue/internal/metrics"
	"crowdqueue/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store) http.Handler {
	metrics.Register()

	requestSvc := requests.New(dataStore)
	voteSvc := votes.New(dataStore)
	queueSvc := queue.New(dataStore)
	identitySvc := identity.NewService(dataStore, []byte(cfg.ModeratorJWTSecret))

	api := httpapi.New(requestSvc, voteSvc, queueSvc, identitySvc)

	handler := httpapi.Recovery(httpapi.RequestLogging(api.Routes()))
	return withCORS(cfg.AllowedOrigins, handler)
}

func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || origin == "" {
			return false
		}
		for _, o := range allowedOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
