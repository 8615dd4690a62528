package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ironsheep/color-palette-api/internal/pipeline"
	"go.uber.org/zap"
)

// Multipart field names.
const (
	fieldFile     = "file"
	fieldFromFile = "fromFile"
	fieldToFile   = "toFile"
	fieldCount    = "n_colors"
)

// errBadRequest marks request shape problems that map to 400.
var errBadRequest = errors.New("bad request")

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Color Palette API!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":   Title,
		"version": Version,
		"pool":    s.service.Pool().Metrics(),
	})
}

func (s *Server) handleExtractColors(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.respondRequestError(w, err)
		return
	}
	count, err := formCount(r)
	if err != nil {
		s.respondRequestError(w, err)
		return
	}
	data, err := formFile(r, fieldFile)
	if err != nil {
		s.respondRequestError(w, err)
		return
	}

	s.logger.Debug("extract request", zap.Int("bytes", len(data)), zap.Int("n_colors", count))
	colors, err := s.service.ExtractPalette(r.Context(), data, count)
	if err != nil {
		s.respondProcessingError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"palette": colors})
}

func (s *Server) handleTransferColors(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.respondRequestError(w, err)
		return
	}
	count, err := formCount(r)
	if err != nil {
		s.respondRequestError(w, err)
		return
	}
	source, err := formFile(r, fieldFromFile)
	if err != nil {
		s.respondRequestError(w, err)
		return
	}
	target, err := formFile(r, fieldToFile)
	if err != nil {
		s.respondRequestError(w, err)
		return
	}

	s.logger.Debug("transfer request",
		zap.Int("source_bytes", len(source)),
		zap.Int("target_bytes", len(target)),
		zap.Int("n_colors", count),
	)
	out, err := s.service.TransferColors(r.Context(), source, target, count)
	if err != nil {
		s.respondProcessingError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"transferred_image": out.DataURI()})
}

// parseForm reads the multipart body, capped at server.max_upload_bytes.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	limit := s.config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}
	return nil
}

// formCount parses n_colors. A non-positive value is reported as
// pipeline.ErrInvalidCount before any file is read.
func formCount(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.FormValue(fieldCount))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing field %q", errBadRequest, fieldCount)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q must be an integer", errBadRequest, fieldCount)
	}
	if n <= 0 {
		return 0, pipeline.ErrInvalidCount
	}
	return n, nil
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: missing file %q", errBadRequest, field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", errBadRequest, field, err)
	}
	return data, nil
}

func (s *Server) respondRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case pipeline.IsInvalidInput(err):
		s.respondError(w, http.StatusBadRequest, pipeline.ErrInvalidCount.Error())
	default:
		s.respondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "))
	}
}

// respondProcessingError maps pipeline errors onto the two public failure categories.
func (s *Server) respondProcessingError(w http.ResponseWriter, err error) {
	if pipeline.IsInvalidInput(err) {
		s.respondError(w, http.StatusBadRequest, pipeline.ErrInvalidCount.Error())
		return
	}
	s.logger.Error("processing failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "Failed to process image: "+err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}
