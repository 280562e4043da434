// Package handler exposes the claims use cases over HTTP.
package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"claimdesk_backend/internal/adapters/storage"
	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/claims/service"
	"claimdesk_backend/internal/claims/transport"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/platform/httpkit"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidClaimKind = "invalid claim kind"
	msgInvalidClaimID   = "invalid claim id"

	defaultMaxEvidenceBytes = 10 << 20
)

// ClaimsService is the business logic the handler drives.
type ClaimsService interface {
	Converse(ctx context.Context, in service.ConverseInput) (service.ConverseResult, error)
	AnalyzeEvidence(ctx context.Context, img agent.Image) (string, error)
	Decide(ctx context.Context, in service.DecisionInput) (service.DecisionResult, error)
	ListPending(ctx context.Context, companyID uuid.UUID) (service.PendingClaims, error)
	GetClaim(ctx context.Context, companyID uuid.UUID, kind domain.Kind, id uuid.UUID) (domain.ClaimView, error)
	Policy(ctx context.Context, companyID uuid.UUID) (string, error)
}

// Handler handles HTTP requests for claims.
type Handler struct {
	svc              ClaimsService
	val              *validator.Validator
	evidence         storage.EvidenceStore
	maxEvidenceBytes int64
	log              *logger.Logger
}

// New creates a new claims handler.
func New(svc ClaimsService, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log, maxEvidenceBytes: defaultMaxEvidenceBytes}
}

// SetEvidenceStore injects object storage for uploaded evidence. Without it
// photos are analyzed but not kept.
func (h *Handler) SetEvidenceStore(store storage.EvidenceStore) {
	h.evidence = store
	if store != nil && store.MaxFileSize() > 0 {
		h.maxEvidenceBytes = store.MaxFileSize()
	}
}

// RegisterPublicRoutes registers the customer chat routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Chat)
	rg.POST("/evidence", h.UploadEvidence)
}

// RegisterAdminRoutes registers the reviewer routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/claims/pending", h.ListPending)
	rg.GET("/claims/:kind/:id", h.GetClaim)
	rg.POST("/claims/:kind/:id/decision", h.Decide)
	rg.GET("/policy", h.GetPolicy)
}

// Chat handles POST /api/v1/chat
func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	history := make([]agent.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, agent.Turn{Role: agent.Role(turn.Role), Content: turn.Content})
	}

	result, err := h.svc.Converse(c.Request.Context(), service.ConverseInput{
		Message:       req.Message,
		History:       history,
		ImageAnalysis: req.ImageAnalysis,
		EvidenceRef:   req.EvidenceRef,
		CustomerID:    req.CustomerID,
		CompanyID:     req.CompanyID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toChatResponse(result))
}

// UploadEvidence handles POST /api/v1/chat/evidence
// Stores the photo when storage is configured and returns its analysis.
func (h *Handler) UploadEvidence(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "file is required")
		return
	}

	contentType := storage.NormalizeContentType(file.Header.Get("Content-Type"))
	if err := storage.ValidateContentType(contentType); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if err := storage.ValidateFileSize(file.Size, h.maxEvidenceBytes); err != nil {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, msgValidationFailed, err.Error())
		return
	}

	var companyID *uuid.UUID
	if raw := strings.TrimSpace(c.PostForm("company_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "invalid company_id")
			return
		}
		companyID = &id
	}

	src, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxEvidenceBytes+1))
	if err != nil || int64(len(data)) > h.maxEvidenceBytes {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	ctx := c.Request.Context()
	resp := transport.EvidenceResponse{}
	if h.evidence != nil {
		key, err := h.evidence.UploadEvidence(ctx, evidenceFolder(companyID), file.Filename, contentType, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			h.log.WithContext(ctx).Error("evidence upload failed", "error", err)
		} else {
			resp.EvidenceRef = key
		}
	}

	analysis, err := h.svc.AnalyzeEvidence(ctx, agent.Image{MIMEType: contentType, Data: data})
	if httpkit.HandleError(c, err) {
		return
	}
	resp.Analysis = analysis
	resp.VerificationFailed = agent.VerificationFailed(analysis)

	httpkit.OK(c, resp)
}

// ListPending handles GET /api/v1/admin/claims/pending
func (h *Handler) ListPending(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}

	pending, err := h.svc.ListPending(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	ctx := c.Request.Context()
	httpkit.OK(c, transport.PendingResponse{
		Refunds:     h.toClaimResponses(ctx, pending.Refunds),
		Escalations: h.toClaimResponses(ctx, pending.Escalations),
		Payouts:     h.toClaimResponses(ctx, pending.Payouts),
	})
}

// GetClaim handles GET /api/v1/admin/claims/:kind/:id
func (h *Handler) GetClaim(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}
	kind, id, ok := h.parseClaimPath(c)
	if !ok {
		return
	}

	view, err := h.svc.GetClaim(c.Request.Context(), companyID, kind, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.toClaimResponse(c.Request.Context(), view))
}

// Decide handles POST /api/v1/admin/claims/:kind/:id/decision
func (h *Handler) Decide(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}
	kind, id, ok := h.parseClaimPath(c)
	if !ok {
		return
	}

	var req transport.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	result, err := h.svc.Decide(c.Request.Context(), service.DecisionInput{
		CompanyID:  companyID,
		Kind:       kind,
		ClaimID:    id,
		Decision:   req.Decision,
		Correction: req.Correction,
		ReviewedBy: identity.Subject(),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.DecisionResponse{Status: string(result.Status), NewPolicy: result.NewPolicy})
}

// GetPolicy handles GET /api/v1/admin/policy
func (h *Handler) GetPolicy(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}

	policy, err := h.svc.Policy(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PolicyResponse{Policy: policy})
}

func (h *Handler) toClaimResponses(ctx context.Context, views []domain.ClaimView) []transport.ClaimResponse {
	out := make([]transport.ClaimResponse, 0, len(views))
	for _, v := range views {
		out = append(out, h.toClaimResponse(ctx, v))
	}
	return out
}

func (h *Handler) toClaimResponse(ctx context.Context, v domain.ClaimView) transport.ClaimResponse {
	amount := v.Record.AmountCents
	if amount == 0 {
		amount = v.TransactionAmountCents
	}

	resp := transport.ClaimResponse{
		ID:            v.Record.ID,
		Kind:          string(v.Record.Kind),
		TransactionID: v.Record.TransactionID,
		OrderRef:      v.OrderRef,
		Status:        string(v.Record.Status),
		Reasoning:     v.Record.Reasoning,
		AmountCents:   amount,
		CustomerID:    v.Record.CustomerID,
		Transcript:    v.Transcript,
		AIReason:      v.AIReason,
		EvidenceRef:   v.EvidenceRef,
		CreatedAt:     v.Record.CreatedAt,
		UpdatedAt:     v.Record.UpdatedAt,
	}

	if h.evidence != nil && v.EvidenceRef != nil && *v.EvidenceRef != "" {
		url, err := h.evidence.EvidenceURL(ctx, *v.EvidenceRef)
		if err != nil {
			h.log.WithContext(ctx).Warn("evidence link unavailable", "claim_id", v.Record.ID.String(), "error", err)
		} else {
			resp.EvidenceURL = &url.URL
		}
	}
	return resp
}

func toChatResponse(result service.ConverseResult) transport.ChatResponse {
	resp := transport.ChatResponse{
		Reply:         result.Reply,
		Events:        toDashboardEvents(result.Events),
		ImageAnalysis: result.ImageAnalysis,
	}
	if result.Action != nil {
		resp.Action = &transport.ChatAction{
			Action:        string(result.Action.Kind),
			Reason:        result.Action.Reason,
			TransactionID: result.Action.TransactionRef,
		}
	}
	return resp
}

func toDashboardEvents(events []dashboard.Event) []transport.DashboardEvent {
	out := make([]transport.DashboardEvent, 0, len(events))
	for _, e := range events {
		out = append(out, transport.DashboardEvent(e))
	}
	return out
}

func (h *Handler) parseClaimPath(c *gin.Context) (domain.Kind, uuid.UUID, bool) {
	raw := c.Param("kind")
	if err := h.val.Var(raw, "required,claimkind"); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClaimKind, nil)
		return "", uuid.UUID{}, false
	}
	kind, err := domain.ParseKind(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClaimKind, nil)
		return "", uuid.UUID{}, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClaimID, nil)
		return "", uuid.UUID{}, false
	}
	return kind, id, true
}

func mustGetCompanyID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	return identity.CompanyID(), true
}

func evidenceFolder(companyID *uuid.UUID) string {
	if companyID == nil {
		return "unscoped"
	}
	return fmt.Sprintf("companies/%s", companyID)
}
