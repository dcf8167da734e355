package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/circletel/backend/internal/application/sync"
	"github.com/circletel/backend/internal/domain/partner"
	domainsync "github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes the synchronization admin surface.
type SyncHandler struct {
	BaseHandler
	daily      *appsync.DailySyncService
	backfill   *appsync.BackfillService
	retry      *appsync.RetryService
	entities   *appsync.EntitySyncService
	activation *appsync.ActivationService
	health     *appsync.HealthService
	logs       domainsync.SyncLogReader
	logger     *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	daily *appsync.DailySyncService,
	backfill *appsync.BackfillService,
	retry *appsync.RetryService,
	entities *appsync.EntitySyncService,
	activation *appsync.ActivationService,
	health *appsync.HealthService,
	logs domainsync.SyncLogReader,
	logger *zap.Logger,
) *SyncHandler {
	return &SyncHandler{
		daily:      daily,
		backfill:   backfill,
		retry:      retry,
		entities:   entities,
		activation: activation,
		health:     health,
		logs:       logs,
		logger:     logger.Named("http.sync"),
	}
}

// RegisterRoutes registers the sync admin routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/daily", h.TriggerDailySync)
		sync.POST("/backfill", h.TriggerBackfill)
		sync.POST("/products/:id", h.SyncProduct)
		sync.POST("/entities/:type/:id", h.SyncEntity)
		sync.POST("/retries/process", h.ProcessRetries)
		sync.GET("/status", h.Status)
		sync.GET("/logs", h.Logs)
		sync.GET("/queue", h.Queue)
	}

	services := rg.Group("/services")
	{
		services.POST("/:id/activate", h.ActivateService)
	}
}

// TriggerDailySync runs one orchestrated sync pass.
func (h *SyncHandler) TriggerDailySync(c *gin.Context) {
	var req dto.DailySyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	summary, err := h.daily.Run(c.Request.Context(), appsync.DailySyncOptions{
		DryRun:    req.DryRun,
		Cap:       req.Cap,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		h.logger.Error("daily sync failed", zap.Error(err))
		h.InternalError(c, "daily sync failed")
		return
	}
	h.Success(c, summary)
}

// TriggerBackfill pushes the whole package catalog.
func (h *SyncHandler) TriggerBackfill(c *gin.Context) {
	var req dto.BackfillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	summary, err := h.backfill.Run(c.Request.Context(), appsync.BackfillOptions{
		DryRun:     req.DryRun,
		ActiveOnly: req.ActiveOnly,
		Force:      req.Force,
		Limit:      req.Limit,
		BatchSize:  req.BatchSize,
	})
	if err != nil {
		h.logger.Error("backfill failed", zap.Error(err))
		h.InternalError(c, "backfill failed")
		return
	}
	h.Success(c, summary)
}

// SyncProduct syncs one service package.
func (h *SyncHandler) SyncProduct(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req dto.SyncEntityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	packageID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "invalid package ID")
		return
	}

	outcome := h.entities.SyncProduct(c.Request.Context(), packageID, req.Force)
	h.Success(c, outcome)
}

// SyncEntity syncs one entity of any supported type.
func (h *SyncHandler) SyncEntity(c *gin.Context) {
	entityType, ok := appsync.NormalizeEntityType(c.Param("type"))
	if !ok {
		h.BadRequest(c, "unknown entity type")
		return
	}
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid entity ID")
		return
	}
	var req dto.SyncEntityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome := h.entities.Sync(c.Request.Context(), entityType, entityID, req.Force)
	h.Success(c, outcome)
}

// ProcessRetries drains the due retry queue.
func (h *SyncHandler) ProcessRetries(c *gin.Context) {
	tally, err := h.retry.ProcessRetryQueue(c.Request.Context())
	if err != nil {
		h.logger.Error("retry pass failed", zap.Error(err))
		h.InternalError(c, "retry pass failed")
		return
	}
	h.Success(c, tally)
}

// Status reports provider health and the sync backlog.
func (h *SyncHandler) Status(c *gin.Context) {
	report, err := h.health.Check(c.Request.Context())
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		h.InternalError(c, "health check failed")
		return
	}
	h.Success(c, report)
}

// LogEntryView is the API shape of one audit row.
type LogEntryView struct {
	EntityType     string    `json:"entity_type"`
	EntityID       uuid.UUID `json:"entity_id"`
	Target         string    `json:"target"`
	Action         string    `json:"action"`
	Success        bool      `json:"success"`
	ExternalID     string    `json:"external_id,omitempty"`
	Message        string    `json:"message,omitempty"`
	HTTPStatus     int       `json:"http_status,omitempty"`
	RequestPayload string    `json:"request_payload,omitempty"`
	Attempt        int       `json:"attempt"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Logs returns audit log entries, newest first.
func (h *SyncHandler) Logs(c *gin.Context) {
	var req dto.SyncLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := domainsync.SyncLogFilter{Limit: req.Limit}
	if filter.Limit == 0 {
		filter.Limit = 100
	}
	if req.EntityType != "" {
		entityType := domainsync.EntityType(req.EntityType)
		filter.EntityType = &entityType
	}
	if req.EntityID != "" {
		entityID, err := uuid.Parse(req.EntityID)
		if err != nil {
			h.BadRequest(c, "invalid entity ID")
			return
		}
		filter.EntityID = &entityID
	}
	if req.Failures {
		success := false
		filter.Success = &success
	}

	entries, err := h.logs.Find(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to read sync log", zap.Error(err))
		h.InternalError(c, "failed to read sync log")
		return
	}

	views := make([]LogEntryView, len(entries))
	for i, entry := range entries {
		views[i] = LogEntryView{
			EntityType:     entry.EntityType.String(),
			EntityID:       entry.EntityID,
			Target:         entry.Target.String(),
			Action:         entry.Action.String(),
			Success:        entry.Success,
			ExternalID:     entry.ExternalID,
			Message:        entry.Message,
			HTTPStatus:     entry.HTTPStatus,
			RequestPayload: entry.RequestPayload,
			Attempt:        entry.Attempt,
			DurationMS:     entry.Duration.Milliseconds(),
			CreatedAt:      entry.CreatedAt,
		}
	}
	h.Success(c, views)
}

// QueueItemView is the API shape of one due retry.
type QueueItemView struct {
	EntityType  string     `json:"entity_type"`
	EntityID    uuid.UUID  `json:"entity_id"`
	RetryCount  int        `json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Queue returns the failed records that are due for a retry.
func (h *SyncHandler) Queue(c *gin.Context) {
	records, err := h.retry.RetryQueue(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read retry queue", zap.Error(err))
		h.InternalError(c, "failed to read retry queue")
		return
	}

	views := make([]QueueItemView, len(records))
	for i, record := range records {
		views[i] = QueueItemView{
			EntityType:  record.EntityType.String(),
			EntityID:    record.EntityID,
			RetryCount:  record.State.RetryCount(),
			NextRetryAt: record.State.NextRetryAt(),
		}
		if lastErr := record.State.LastError(); lastErr != nil {
			views[i].LastError = lastErr.Message
		}
	}
	h.Success(c, views)
}

// ActivateService runs the go-live chain for a customer service.
func (h *SyncHandler) ActivateService(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req dto.ActivateServiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	serviceID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "invalid service ID")
		return
	}
	activatedAt := time.Now()
	if req.ActivatedAt != nil {
		activatedAt = *req.ActivatedAt
	}

	result, err := h.activation.ActivateService(c.Request.Context(), serviceID, activatedAt)
	if err != nil {
		if errors.Is(err, partner.ErrServiceNotFound) {
			h.NotFound(c, "service not found")
			return
		}
		h.logger.Error("activation failed",
			zap.String("service_id", serviceID.String()),
			zap.Error(err),
		)
		h.InternalError(c, "activation failed")
		return
	}
	h.Success(c, result)
}
