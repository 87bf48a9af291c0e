package models

// JSONB maps a Postgres JSONB column to a Go map.
type JSONB map[string]interface{}
