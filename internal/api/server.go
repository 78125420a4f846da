package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// NewRouter mounts every fetch, save and read route on a chi router.
func NewRouter(svc Service, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/", h.home)
	r.Get("/api", h.status)

	r.Route("/youtube", func(r chi.Router) {
		r.Get("/popular", h.fetch(domain.PlatformYouTube, youtubeFetchLimit, "data"))
		r.Post("/save", h.save(domain.PlatformYouTube, youtubeSaveLimit))
		r.Get("/data", h.data(domain.PlatformYouTube))
	})
	r.Route("/forum", func(r chi.Router) {
		r.Get("/fetch", h.fetch(domain.PlatformForum, forumFetchLimit, "data_sample"))
		r.Post("/save", h.save(domain.PlatformForum, forumSaveLimit))
		r.Get("/data", h.data(domain.PlatformForum))
	})
	r.Route("/google", func(r chi.Router) {
		r.Get("/fetch", h.fetch(domain.PlatformGoogle, googleFetchLimit, "data"))
		r.Post("/save", h.save(domain.PlatformGoogle, googleSaveLimit))
		r.Get("/data", h.data(domain.PlatformGoogle))
	})
	r.Get("/workflows/all", h.all)

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoObj("http request", "http_request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"elapsed_ms":  time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
				"remote_addr": r.RemoteAddr,
			})
		})
	}
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewServer builds a server listening on addr.
func NewServer(addr string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http_addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.InfoObj("http server stopped", "reason", ctx.Err().Error())
	return nil
}
