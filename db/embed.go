// Package db embeds the catalog database schema.
package db

import _ "embed"

// Schema holds the idempotent DDL for the products table.
//
//go:embed migrations/001_schema.sql
var Schema string
