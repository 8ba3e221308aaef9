package handler

import (
	"context"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/infrastructure/scheduler"
	"github.com/erp/bridge/internal/interfaces/http/dto"
	"github.com/erp/bridge/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// SyncService runs synchronizations
type SyncService interface {
	Run(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, changed bool) (*syncer.Report, error)
	RunOne(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, key string) (*syncer.Result, error)
	Purge(ctx context.Context, kind syncer.EntityKind) (int64, error)
}

// JobScheduler exposes the scheduled sync jobs
type JobScheduler interface {
	Jobs() []scheduler.JobState
	Trigger(name string) error
}

// SyncHandler serves the sync trigger API
type SyncHandler struct {
	BaseHandler
	service   SyncService
	scheduler JobScheduler
}

// NewSyncHandler creates a SyncHandler. sched may be nil when scheduling is off.
func NewSyncHandler(service SyncService, sched JobScheduler) *SyncHandler {
	return &SyncHandler{service: service, scheduler: sched}
}

// RegisterRoutes registers the sync and schedule routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("/sync").
		POST("/:kind/:direction", h.Run).
		POST("/:kind/:direction/:key", h.RunOne).
		DELETE("/:kind", h.Purge).
		RegisterRoutes(rg)

	router.NewDomainGroup("/schedule").
		GET("", h.ListJobs).
		POST("/:name/trigger", h.TriggerJob).
		RegisterRoutes(rg)
}

// Run syncs all records, or only changed ones with ?changed=true, of a kind
// in one direction and returns the batch report.
func (h *SyncHandler) Run(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}
	var query dto.RunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}
	kind, direction, ok := h.parse(c, req)
	if !ok {
		return
	}

	report, err := h.service.Run(c.Request.Context(), kind, direction, query.Changed)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// RunOne syncs a single record by its natural key and returns its result
func (h *SyncHandler) RunOne(c *gin.Context) {
	var req dto.RunOneRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}
	kind, direction, ok := h.parse(c, req.RunRequest)
	if !ok {
		return
	}

	result, err := h.service.RunOne(c.Request.Context(), kind, direction, req.Key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Purge deletes every bridge row of a kind
func (h *SyncHandler) Purge(c *gin.Context) {
	kind, err := syncer.ParseEntityKind(c.Param("kind"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	deleted, err := h.service.Purge(c.Request.Context(), kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.PurgeResponse{Kind: string(kind), Deleted: deleted})
}

// ListJobs returns the state of every scheduled job
func (h *SyncHandler) ListJobs(c *gin.Context) {
	if h.scheduler == nil {
		h.Success(c, []scheduler.JobState{})
		return
	}
	h.Success(c, h.scheduler.Jobs())
}

// TriggerJob runs a scheduled job now and returns its updated state
func (h *SyncHandler) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	if h.scheduler == nil {
		h.Error(c, dto.ErrCodeUnavailable, "scheduler is not running")
		return
	}
	if err := h.scheduler.Trigger(name); err != nil {
		h.NotFound(c, err.Error())
		return
	}
	for _, state := range h.scheduler.Jobs() {
		if state.Name == name {
			h.Success(c, state)
			return
		}
	}
	h.NotFound(c, "job "+name+" not found")
}

func (h *SyncHandler) parse(c *gin.Context, req dto.RunRequest) (syncer.EntityKind, syncer.Direction, bool) {
	kind, err := syncer.ParseEntityKind(req.Kind)
	if err != nil {
		h.HandleError(c, err)
		return "", "", false
	}
	direction, err := syncer.ParseDirection(req.Direction)
	if err != nil {
		h.HandleError(c, err)
		return "", "", false
	}
	return kind, direction, true
}
