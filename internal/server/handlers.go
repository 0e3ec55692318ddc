package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/yomitori/internal/export"
	"github.com/hyperjump/yomitori/internal/extract"
	"github.com/hyperjump/yomitori/internal/intake"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// statusClientClosedRequest is nginx's code for a client that went away
	// before the response was ready.
	statusClientClosedRequest = 499
)

// errorStatus maps extraction errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrUnreadableFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, intake.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if limit := s.config.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
			return
		}
		s.respondError(w, http.StatusBadRequest, "expected multipart/form-data with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	ocrEnabled := true
	if v := r.FormValue("ocr_enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "ocr_enabled must be a boolean")
			return
		}
		ocrEnabled = b
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	req := models.ExtractionRequest{
		Content:     content,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		OCREnabled:  ocrEnabled,
	}
	s.logger.Debug("extract request", zap.Int("bytes", len(content)), zap.Bool("ocr_enabled", ocrEnabled))
	res, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		status := errorStatus(err)
		switch status {
		case http.StatusInternalServerError:
			s.logger.Error("extraction failed", zap.Error(err))
		case statusClientClosedRequest:
			s.logger.Debug("client went away during extraction", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (s *Server) handleActivityLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	onlyAPI := true
	if v := r.URL.Query().Get("only_api"); v != "" {
		if onlyAPI, err = strconv.ParseBool(v); err != nil {
			s.respondError(w, http.StatusBadRequest, "only_api must be a boolean")
			return
		}
	}
	logs, err := s.storage.ListActivityLogs(r.Context(), storage.ActivityFilter{Limit: min(limit, maxListLimit), OnlyAPI: onlyAPI})
	if err != nil {
		s.logger.Error("list activity logs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []*models.ActivityLog{}
	}
	s.respondJSON(w, http.StatusOK, logs)
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	recs, err := s.storage.ListExtractions(ctx, offset, min(limit, maxListLimit))
	if err != nil {
		s.logger.Error("list extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountExtractions(ctx)
	if err != nil {
		s.logger.Error("count extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*models.ExtractionRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"extractions": recs, "total": total})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.GetExtraction(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "extraction not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", export.DefaultLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.exporter.WorkbookXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := fmt.Sprintf("yomitori-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	extractions, err := s.storage.CountExtractions(ctx)
	if err != nil {
		s.logger.Error("status: count extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	activity, err := s.storage.CountActivityLogs(ctx)
	if err != nil {
		s.logger.Error("status: count activity logs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"ocr":           s.extractor.Capability(),
		"extractions":   extractions,
		"activity_logs": activity,
	}
	if s.dbSize != nil {
		if size, err := s.dbSize(); err == nil {
			resp["disk_usage_bytes"] = size
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
