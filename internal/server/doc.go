// Package server exposes the source registry and the aggregated records
// over HTTP.
//
// Routes:
//
//	GET    /version          service version
//	GET    /healthz          liveness
//	GET    /metrics          counters, gauges and timings as JSON
//	GET    /sources          {"sources": [...]}
//	POST   /sources          register {"url", "tribe"}; 201 created, 200 updated
//	DELETE /sources/{id}     {"ok": true}, or 404
//	GET    /data?force=      record list, or {"data", "errors"} when a source failed
//	GET    /export.xlsx      workbook attachment
//	GET    /export.csv       CSV attachment
//
// /data and the exports accept tribe, team and dates (YYYY-MM-DD..YYYY-MM-DD)
// query parameters to narrow the records returned.
//
// CORS is permissive: any origin, method and header is allowed.
package server
