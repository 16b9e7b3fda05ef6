// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package models

import "time"

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope for every HTTP response.
//
// Status is "success" with Data populated, or "error" with Error populated.
//
//	{
//	  "status": "success",
//	  "data": {"id": "5f0c...", "owner_id": "acme"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "request_id": "..."}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp   time.Time       `json:"timestamp"`
	RequestID   string          `json:"request_id,omitempty"`
	QueryTimeMS int64           `json:"query_time_ms,omitempty"`
	Pagination  *PaginationInfo `json:"pagination,omitempty"`
}

// APIError carries a machine-readable code alongside the message.
//
// Codes used by the API:
//   - VALIDATION_ERROR (400)
//   - UNAUTHORIZED (401)
//   - NOT_FOUND (404)
//   - CONFLICT (409)
//   - INTEGRITY_ERROR (422)
//   - RATE_LIMITED (429)
//   - INTERNAL_ERROR (500)
//   - EXPORT_FAILED, STORAGE_ERROR (502)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo describes an offset page of a listing.
type PaginationInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// NewPaginationInfo builds page metadata. fetched is the number of rows read
// with a limit of limit+1, so an extra row means another page exists.
func NewPaginationInfo(limit, offset, fetched int) *PaginationInfo {
	count := fetched
	if count > limit {
		count = limit
	}
	return &PaginationInfo{
		Limit:   limit,
		Offset:  offset,
		Count:   count,
		HasMore: fetched > limit,
	}
}

// HealthStatus is the payload of the health endpoints.
type HealthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Uptime     float64           `json:"uptime_seconds"`
	Components map[string]string `json:"components"`
}
