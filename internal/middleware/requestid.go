// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/tenantvault/internal/logging"
)

// Header names for request tracing.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// maxTraceIDLength bounds caller-supplied ids before they reach logs.
const maxTraceIDLength = 128

// RequestID assigns every request a request id and a correlation id.
// Upstream ids are kept when present. Both are echoed in response headers and
// stored in the logging context, so backup history events raised by the
// request carry the same correlation id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := traceID(r.Header.Get(RequestIDHeader))
		correlationID := traceID(r.Header.Get(CorrelationIDHeader))
		if correlationID == "" {
			correlationID = requestID
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(CorrelationIDHeader, correlationID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// traceID returns v when it is usable, otherwise a new UUID.
func traceID(v string) string {
	if v == "" || len(v) > maxTraceIDLength {
		return uuid.New().String()
	}
	for _, c := range v {
		if c < 0x21 || c == 0x7f {
			return uuid.New().String()
		}
	}
	return v
}
