// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - service_package.go: Catalog context models (ServicePackage)
// - partner.go: Partner context models (Customer, CustomerService, PaymentTransaction)
// - trade.go: Trade context models (Quote)
// - integration_record.go: Sync state and external references per entity
// - sync_log.go: Append-only audit log of provider attempts
package models
