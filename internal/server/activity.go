package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/yomitori/internal/models"
	"go.uber.org/zap"
)

const activityWriteTimeout = 5 * time.Second

// skipActivity reports requests that are not recorded: UI polling, the root page
// and static assets.
func skipActivity(method, path string) bool {
	switch {
	case method == http.MethodGet && (path == "/activity-logs" || path == "/deleted-orders" || path == "/orders"):
		return true
	case path == "/", strings.HasPrefix(path, "/assets/"), strings.HasPrefix(path, "/favicon"):
		return true
	}
	return false
}

func isExtractPath(path string) bool {
	return strings.Contains(path, "/extract/patient-info") || path == "/api/v1/extract"
}

// describeRequest summarizes a request for the activity log. It never reads the body.
func describeRequest(r *http.Request) string {
	path := r.URL.Path
	switch r.Method {
	case http.MethodPost:
		if isExtractPath(path) {
			return "Document upload for patient info extraction"
		}
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(ct, "multipart/form-data"):
			return "File upload request"
		case strings.Contains(ct, "application/json"):
			return "JSON API request"
		default:
			return "Request with content-type: " + ct
		}
	case http.MethodDelete:
		return "Delete operation on " + path
	case http.MethodPut, http.MethodPatch:
		return "Update operation on " + path
	}
	return ""
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// activityLog records each request with its final status code. A failed write is
// logged and never affects the response.
func (s *Server) activityLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || skipActivity(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := &models.ActivityLog{
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: status,
			IPAddress:  clientIP(r),
			Body:       describeRequest(r),
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), activityWriteTimeout)
		defer cancel()
		if err := s.storage.CreateActivityLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record activity", zap.String("path", entry.Path), zap.Error(err))
		}
	})
}
