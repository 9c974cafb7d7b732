// Package db provides the embedded schema files, one DDL set per
// supported database dialect.
package db

import "embed"

// Migrations holds the schema under migrations/<dialect>/.
//
//go:embed migrations
var Migrations embed.FS
