// Package cli implements the command-line interface for teamtemp.
//
// The cli package provides the Cobra-based CLI: serving the HTTP API,
// running one-off scrape rounds with text or JSON output sorted by date,
// team or tribe, managing the source registry and exporting records to CSV
// or XLSX. It coordinates the config, app, server and export packages.
package cli
