// Package api provides the bridge's HTTP server and routing.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/api/handlers"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/api/middleware"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/auth"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/metrics"
)

const (
	// defaultBodyLimit bounds JSON and respond bodies.
	defaultBodyLimit = 2 << 20 // 2 MiB
	// uploadBodyLimit bounds postoperation uploads.
	uploadBodyLimit = 100 << 20 // 100 MiB
)

// NewRouter creates the chi router with all middleware and routes.
//
// Every route requires a bearer token; watch-only tokens reach only the
// read-only endpoints (the auth middleware enforces the allow-list).
func NewRouter(b *bridge.Bridge, tokens *auth.TokenService) http.Handler {
	r := chi.NewRouter()

	// middleware stack, order matters
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.Auth(tokens, b))

	h := handlers.New(b)

	r.With(chimiddleware.RequestSize(uploadBodyLimit)).
		Post("/postoperation", h.PostOperation)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.RequestSize(defaultBodyLimit))

		r.Post("/bumpaddressindices", h.BumpAddressIndices)
		r.Get("/getcurrentaddressindices", h.GetCurrentAddressIndices)
		r.Post("/getfile", h.GetFile)
		r.Get("/getlastprocessedopidx", h.GetLastProcessedOpIdx)
		r.Post("/getoperationbyidx", h.GetOperationByIdx)
		r.Get("/info", h.Info)
		r.Post("/markoperationprocessed", h.MarkOperationProcessed)
		r.Post("/respondtooperation", h.RespondToOperation)
	})

	return r
}

// requestLogger logs request start (DEBUG) and completion (INFO), and feeds
// the HTTP request metrics.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		logger.Debug("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.URL.Path, r.Method, ww.Status(), duration)

		logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
