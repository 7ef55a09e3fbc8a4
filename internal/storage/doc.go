// Package storage provides JSON file persistence for the source registry.
//
// The registry lives in a single sources.json file under the data directory
// (default ~/.local/share/teamtemp/). Writes go to a temporary file in the
// same directory, are synced, and are then renamed over the canonical file,
// so an interrupted write never leaves the registry empty or truncated.
package storage
