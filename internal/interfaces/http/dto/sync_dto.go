package dto

import "time"

// DailySyncRequest tunes a manually triggered daily run.
type DailySyncRequest struct {
	// DryRun lists candidates without making provider calls
	DryRun bool `json:"dry_run"`
	// Cap overrides the candidate ceiling
	Cap int `json:"cap" binding:"omitempty,min=1,max=1000"`
	// BatchSize overrides the batch size
	BatchSize int `json:"batch_size" binding:"omitempty,min=1,max=100"`
}

// SyncEntityRequest triggers one entity sync.
type SyncEntityRequest struct {
	// Force re-syncs records in ok or terminal state
	Force bool `form:"force"`
}

// BackfillRequest tunes a catalog backfill.
type BackfillRequest struct {
	DryRun     bool `json:"dry_run"`
	ActiveOnly bool `json:"active_only"`
	Force      bool `json:"force"`
	Limit      int  `json:"limit" binding:"omitempty,min=1"`
	BatchSize  int  `json:"batch_size" binding:"omitempty,min=1,max=100"`
}

// ActivateServiceRequest marks a customer service live.
type ActivateServiceRequest struct {
	// ActivatedAt defaults to now when omitted, backdating is allowed
	ActivatedAt *time.Time `json:"activated_at" binding:"omitempty,notfuture"`
}

// SyncLogsRequest filters the audit log.
type SyncLogsRequest struct {
	EntityType string `form:"entity_type" binding:"omitempty,oneof=product customer subscription payment quote"`
	EntityID   string `form:"entity_id" binding:"omitempty,uuid"`
	Failures   bool   `form:"failures"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
