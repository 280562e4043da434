package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/claims/service"
	"claimdesk_backend/internal/claims/transport"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/httpkit"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeService struct {
	converseIn  service.ConverseInput
	decisionIn  service.DecisionInput
	decideErr   error
	analysis    string
	analyzedImg agent.Image
}

func (f *fakeService) Converse(_ context.Context, in service.ConverseInput) (service.ConverseResult, error) {
	f.converseIn = in
	action := &domain.Action{Kind: domain.ActionRefund, Reason: "ok", TransactionRef: "AB12"}
	return service.ConverseResult{
		Reply:  "Refund approved.",
		Action: action,
		Events: dashboard.Events(action, ""),
	}, nil
}

func (f *fakeService) AnalyzeEvidence(_ context.Context, img agent.Image) (string, error) {
	f.analyzedImg = img
	return f.analysis, nil
}

func (f *fakeService) Decide(_ context.Context, in service.DecisionInput) (service.DecisionResult, error) {
	f.decisionIn = in
	if f.decideErr != nil {
		return service.DecisionResult{}, f.decideErr
	}
	policy := "new policy"
	return service.DecisionResult{Status: domain.StatusRejected, NewPolicy: &policy}, nil
}

func (f *fakeService) ListPending(context.Context, uuid.UUID) (service.PendingClaims, error) {
	transcript := "User: hi"
	return service.PendingClaims{
		Payouts: []domain.ClaimView{{
			Record:     domain.ClaimRecord{ID: uuid.New(), Kind: domain.KindPayout, Status: domain.StatusReadyForPayout, AmountCents: 4999},
			OrderRef:   "AB12",
			Transcript: &transcript,
		}},
	}, nil
}

func (f *fakeService) GetClaim(context.Context, uuid.UUID, domain.Kind, uuid.UUID) (domain.ClaimView, error) {
	return domain.ClaimView{}, apperr.NotFound("claim not found")
}

func (f *fakeService) Policy(context.Context, uuid.UUID) (string, error) {
	return "Standard Policy", nil
}

func newRouter(svc *fakeService, companyID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(svc, validator.New(), logger.Nop())

	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/chat"))
	admin := r.Group("/admin", func(c *gin.Context) {
		c.Set(httpkit.ContextSubjectKey, "reviewer")
		c.Set(httpkit.ContextCompanyIDKey, companyID)
		c.Set(httpkit.ContextRolesKey, []string{httpkit.RoleCompanyAdmin})
		c.Next()
	})
	h.RegisterAdminRoutes(admin)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	companyID := uuid.New()
	r := newRouter(svc, uuid.New())

	body := `{"message":"order #AB12 broke","history":[{"role":"user","content":"hi"}],"company_id":"` + companyID.String() + `"}`
	rec := doJSON(r, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transport.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "Refund approved." || resp.Action == nil || resp.Action.TransactionID != "AB12" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Events) != 1 || resp.Events[0].Icon != "receipt_long" {
		t.Fatalf("unexpected events %+v", resp.Events)
	}
	if svc.converseIn.CompanyID == nil || *svc.converseIn.CompanyID != companyID || svc.converseIn.History[0].Role != agent.RoleUser {
		t.Fatalf("unexpected converse input %+v", svc.converseIn)
	}
}

func TestChatValidation(t *testing.T) {
	r := newRouter(&fakeService{}, uuid.New())
	for _, body := range []string{
		`{"message":"   "}`,
		`{"message":"hi","history":[{"role":"system","content":"x"}]}`,
		`not json`,
	} {
		if rec := doJSON(r, http.MethodPost, "/chat", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestUploadEvidence(t *testing.T) {
	svc := &fakeService{analysis: "Verification Failed: screenshot"}
	r := newRouter(svc, uuid.New())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="photo.png"`)
	header.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(header)
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/chat/evidence", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transport.EvidenceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.VerificationFailed || resp.EvidenceRef != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if svc.analyzedImg.MIMEType != "image/png" || string(svc.analyzedImg.Data) != "png-bytes" {
		t.Fatalf("image not forwarded: %+v", svc.analyzedImg)
	}
}

func TestUploadEvidenceRequiresFileField(t *testing.T) {
	r := newRouter(&fakeService{}, uuid.New())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "photo.png")
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/chat/evidence", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file part, got %d", rec.Code)
	}
}

func TestDecide(t *testing.T) {
	svc := &fakeService{}
	companyID := uuid.New()
	r := newRouter(svc, companyID)
	claimID := uuid.New()

	rec := doJSON(r, http.MethodPost, "/admin/claims/payout/"+claimID.String()+"/decision", `{"decision":"DECLINED","correction":"be stricter"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp transport.DecisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "REJECTED" || resp.NewPolicy == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	in := svc.decisionIn
	if in.CompanyID != companyID || in.Kind != domain.KindPayout || in.ClaimID != claimID || in.ReviewedBy != "reviewer" {
		t.Fatalf("unexpected decision input %+v", in)
	}
}

func TestDecideErrors(t *testing.T) {
	svc := &fakeService{decideErr: apperr.Conflict("payout claim is already PAID")}
	r := newRouter(svc, uuid.New())

	if rec := doJSON(r, http.MethodPost, "/admin/claims/voucher/"+uuid.NewString()+"/decision", `{"decision":"PAID"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind should be 400, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPost, "/admin/claims/payout/nope/decision", `{"decision":"PAID"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id should be 400, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPost, "/admin/claims/payout/"+uuid.NewString()+"/decision", `{"decision":"PAID"}`); rec.Code != http.StatusConflict {
		t.Fatalf("conflict should be 409, got %d", rec.Code)
	}
}

func TestListPendingAndGetClaim(t *testing.T) {
	r := newRouter(&fakeService{}, uuid.New())

	rec := doJSON(r, http.MethodGet, "/admin/claims/pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp transport.PendingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Payouts) != 1 || resp.Payouts[0].AmountCents != 4999 || resp.Refunds == nil {
		t.Fatalf("unexpected pending response %s", rec.Body.String())
	}

	if rec := doJSON(r, http.MethodGet, "/admin/claims/refund/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing claim should be 404, got %d", rec.Code)
	}
}
