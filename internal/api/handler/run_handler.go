package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterdesk/recon-engine/internal/domain/audit"
	"github.com/charterdesk/recon-engine/internal/domain/run"
)

// RunHandler handles HTTP requests for reconciliation run lookups
type RunHandler struct {
	runRepo   run.Repository
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(logger *slog.Logger, runRepo run.Repository, auditRepo audit.Repository) *RunHandler {
	return &RunHandler{
		runRepo:   runRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// GetByID retrieves a run by its ID, returning 404 if not found
func (h *RunHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid run ID")
		return
	}

	rn, err := h.runRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound{}) {
			RespondNotFound(c, "Run not found")
			return
		}
		h.logger.Error("Failed to get run", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRunToResponse(rn))
}

// List returns the run history, newest first
func (h *RunHandler) List(c *gin.Context) {
	var page PageParams
	if err := c.ShouldBindQuery(&page); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	runs, err := h.runRepo.List(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("Failed to list runs", "error", err)
		RespondInternalError(c)
		return
	}

	response := RunListResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, rn := range runs {
		response.Runs = append(response.Runs, mapRunToResponse(rn))
	}

	RespondOKWithMeta(c, response, &MetaInfo{Limit: page.Limit, Offset: page.Offset})
}

// GetAudits returns the audit rows written by one run, paginated, with the
// run's total audit count in the response metadata
func (h *RunHandler) GetAudits(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid run ID")
		return
	}

	var page PageParams
	if err := c.ShouldBindQuery(&page); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	total, err := h.auditRepo.CountByRunID(ctx, id)
	if err != nil {
		h.logger.Error("Failed to count audits for run", "run_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	audits, err := h.auditRepo.List(ctx, audit.Filter{
		RunID:  id,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		h.logger.Error("Failed to list audits for run", "run_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := AuditListResponse{Audits: make([]AuditResponse, 0, len(audits))}
	for _, row := range audits {
		response.Audits = append(response.Audits, mapAuditToResponse(row))
	}

	RespondOKWithMeta(c, response, &MetaInfo{
		Limit:      page.Limit,
		Offset:     page.Offset,
		TotalItems: total,
	})
}

// mapRunToResponse maps a run entity to a run response DTO
func mapRunToResponse(rn *run.Run) RunResponse {
	resp := RunResponse{
		ID:              rn.ID.String(),
		Mode:            string(rn.Mode),
		Selector:        rn.Selector,
		ConfidenceFloor: rn.ConfidenceFloor,
		StartedAt:       rn.StartedAt.Format(time.RFC3339),
		Linked:          rn.Linked,
		AlreadyLinked:   rn.AlreadyLinked,
		Ambiguous:       rn.Ambiguous,
		Unmatched:       rn.Unmatched,
		Errored:         rn.Errored,
		LinkedAmount:    rn.LinkedAmount.String(),
		UnmatchedAmount: rn.UnmatchedAmount.String(),
	}
	if rn.CompletedAt != nil {
		resp.CompletedAt = rn.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
