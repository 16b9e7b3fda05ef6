// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/models"
	"github.com/tomtom215/tenantvault/internal/validation"
)

// maxBodyBytes caps request bodies; every request body here is a small JSON object.
const maxBodyBytes = 1 << 20

// Error codes
const (
	codeValidation = "VALIDATION_ERROR"
	codeNotFound   = "NOT_FOUND"
	codeConflict   = "CONFLICT"
	codeIntegrity  = "INTEGRITY_ERROR"
	codeScheduling = "SCHEDULING_ERROR"
	codeExport     = "EXPORT_FAILED"
	codeStorage    = "STORAGE_ERROR"
	codeInternal   = "INTERNAL_ERROR"
	codeTimeout    = "TIMEOUT"
	codeRateLimit  = "RATE_LIMITED"
)

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *models.APIResponse) {
	resp.Metadata.Timestamp = time.Now().UTC()
	if r != nil {
		resp.Metadata.RequestID = logging.RequestIDFromContext(r.Context())
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess writes a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, r, status, &models.APIResponse{Status: models.StatusSuccess, Data: data})
}

// respondPage writes a success envelope with pagination metadata.
func respondPage(w http.ResponseWriter, r *http.Request, data interface{}, page *models.PaginationInfo) {
	writeEnvelope(w, r, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     data,
		Metadata: models.Metadata{Pagination: page},
	})
}

// respondError writes an error envelope. err, when set, is logged but not exposed.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", code).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	writeEnvelope(w, r, status, &models.APIResponse{
		Status: models.StatusError,
		Error:  &models.APIError{Code: code, Message: message},
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	writeEnvelope(w, r, http.StatusBadRequest, &models.APIResponse{
		Status: models.StatusError,
		Error: &models.APIError{
			Code:    codeValidation,
			Message: verr.Error(),
			Details: verr.Details(),
		},
	})
}

// respondDomainError maps the backup error taxonomy to HTTP statuses.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound    *backup.NotFoundError
		invalid     *backup.ValidationError
		conflict    *backup.ConflictError
		integrity   *backup.IntegrityError
		scheduling  *backup.SchedulingError
		exportErr   *backup.ExportFailure
		ioErr       *backup.IOFailure
		requestErrs *validation.RequestValidationError
	)

	switch {
	case errors.As(err, &requestErrs):
		respondValidation(w, r, requestErrs)
	case errors.As(err, &invalid):
		respondError(w, r, http.StatusBadRequest, codeValidation, invalid.Error(), nil)
	case errors.As(err, &scheduling):
		respondError(w, r, http.StatusBadRequest, codeScheduling, scheduling.Error(), nil)
	case errors.As(err, &notFound):
		respondError(w, r, http.StatusNotFound, codeNotFound, notFound.Error(), nil)
	case errors.As(err, &conflict):
		respondError(w, r, http.StatusConflict, codeConflict, conflict.Error(), nil)
	case errors.As(err, &integrity):
		respondError(w, r, http.StatusUnprocessableEntity, codeIntegrity, integrity.Error(), err)
	case errors.As(err, &exportErr):
		respondError(w, r, http.StatusBadGateway, codeExport, "Data export failed", err)
	case errors.As(err, &ioErr):
		respondError(w, r, http.StatusBadGateway, codeStorage, "Storage operation failed: "+ioErr.Op, err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, codeTimeout, "Operation timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Internal server error", err)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return backup.NewValidation("body", "request body too large or unreadable")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return backup.NewValidation("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// validateRequest runs struct validation and writes a 400 on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if verr := validation.ValidateStruct(v); verr != nil {
		respondValidation(w, r, verr)
		return false
	}
	return true
}

// ownerID is the authenticated tenant of the request.
func ownerID(r *http.Request) string {
	return logging.OwnerIDFromContext(r.Context())
}

// performedBy identifies the API caller on history entries.
func performedBy(r *http.Request) string {
	return "api:" + ownerID(r)
}

// pageParams reads limit and offset, clamping limit to the configured maximum.
func (h *Handler) pageParams(r *http.Request) (limit, offset int, err error) {
	limit = h.cfg.DefaultPageSize
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 {
			return 0, 0, backup.NewValidation("limit", "must be a positive integer")
		}
		limit = n
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, backup.NewValidation("offset", "must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}
