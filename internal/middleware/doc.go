// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package middleware provides the HTTP middleware of the control API.

  - RequestID: X-Request-ID / X-Correlation-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge keyed by chi route pattern
  - TenantAuthenticator: resolves the tenant a request is scoped to

Tenant modes:

	jwt     Authorization: Bearer <HS256 token>; tenant from the configured claim
	header  tenant from a header set by a trusted proxy (X-Tenant-ID)
	none    header if present, otherwise "default" (development only)

Typical chi stack:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(tenantAuth.Middleware)
*/
package middleware
