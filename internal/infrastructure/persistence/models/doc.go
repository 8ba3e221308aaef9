// Package models holds the GORM rows of the bridge database and their
// mappers to the bridge domain entities.
//
// Every aggregate is stored as a root row plus child tables (translations,
// media and category links, marketplace prices, addresses, order lines).
// Repositories save the root with associations omitted and replace the
// child rows themselves, so the mappers here never issue queries.
//
// The column names must match migrations/000001_bridge_schema.up.sql, which
// is what PostgreSQL deployments run; SQLite deployments use AllModels with
// AutoMigrate instead.
package models
