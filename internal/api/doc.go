// Package api hosts the operator HTTP server. Notable routes:
//   - GET /healthz and /readyz for health checks; readyz pings the database.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/frontier/stats for per (source, status) frontier counts.
//   - GET /v1/stories/review for stories flagged for human review.
//   - GET /v1/sources and /v1/sources/{source_id} for the source registry.
//
// Every /v1 route requires X-API-Key when an API key is configured.
package api
