package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charterdesk/recon-engine/internal/domain/audit"
)

// AuditHandler handles HTTP requests for match audit lookups
type AuditHandler struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditRepo audit.Repository) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// List returns audit rows matching the query filters, newest first
func (h *AuditHandler) List(c *gin.Context) {
	var params AuditFilterParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid filter parameters: "+err.Error())
		return
	}

	audits, err := h.auditRepo.List(c.Request.Context(), mapFilterParams(params))
	if err != nil {
		h.logger.Error("Failed to list audits", "error", err)
		RespondInternalError(c)
		return
	}

	response := AuditListResponse{Audits: make([]AuditResponse, 0, len(audits))}
	for _, row := range audits {
		response.Audits = append(response.Audits, mapAuditToResponse(row))
	}

	RespondOKWithMeta(c, response, &MetaInfo{Limit: params.Limit, Offset: params.Offset})
}

// mapFilterParams converts validated query parameters into a repository filter
func mapFilterParams(params AuditFilterParams) audit.Filter {
	filter := audit.Filter{
		CharterRef: params.CharterRef,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}

	// binding already checked the uuid format; Parse cannot fail here
	if params.RunID != "" {
		filter.RunID = uuid.MustParse(params.RunID)
	}
	if params.PaymentID != "" {
		filter.PaymentID = uuid.MustParse(params.PaymentID)
	}
	if params.LedgerEntryID != "" {
		filter.LedgerEntryID = uuid.MustParse(params.LedgerEntryID)
	}

	return filter
}

// mapAuditToResponse maps an audit entity to an audit response DTO
func mapAuditToResponse(row *audit.MatchAudit) AuditResponse {
	resp := AuditResponse{
		ID:            row.ID.String(),
		RunID:         row.RunID.String(),
		Mode:          string(row.Mode),
		Strategy:      string(row.Strategy),
		Confidence:    string(row.Confidence),
		Outcome:       string(row.Outcome),
		CharterRef:    row.CharterRef,
		AmountDelta:   row.AmountDelta,
		DateDeltaDays: row.DateDeltaDays,
		NameRatio:     row.NameRatio,
		CreatedAt:     row.CreatedAt.Format(time.RFC3339),
	}
	if row.PaymentID != nil {
		resp.PaymentID = row.PaymentID.String()
	}
	if row.LedgerEntryID != nil {
		resp.LedgerEntryID = row.LedgerEntryID.String()
	}
	return resp
}
