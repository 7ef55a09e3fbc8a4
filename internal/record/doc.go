// Package record turns a decoded TeamTemp DataTable into normalized records.
//
// Each record is one (date, team) observation tagged with the tribe of the
// source it came from. Dates arrive as JavaScript Date constructor strings
// with zero-based months; per-cell statistics arrive in a display string such
// as "(Min: 6.00, Max: 9.00, 6 Responses)". Cells that cannot be used are
// skipped and counted by reason rather than failing the whole table.
package record
