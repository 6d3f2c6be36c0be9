// Package chi exposes the dispatch engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	dombudget "github.com/zaplinehq/zapline/internal/domain/budget"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
	domquota "github.com/zaplinehq/zapline/internal/domain/quota"
	domusage "github.com/zaplinehq/zapline/internal/domain/usage"
	budgetuc "github.com/zaplinehq/zapline/internal/usecase/budget"
	campaignuc "github.com/zaplinehq/zapline/internal/usecase/campaign"
	dispatchuc "github.com/zaplinehq/zapline/internal/usecase/dispatch"
	healthuc "github.com/zaplinehq/zapline/internal/usecase/health"
	usageuc "github.com/zaplinehq/zapline/internal/usecase/usage"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeCampaignNotFound = "campaign_not_found"
	codeCampaignExists   = "campaign_already_exists"
	codeCampaignPaused   = "campaign_paused"
	codeCampaignCanceled = "campaign_canceled"
	codeBudgetOverLimit  = "budget_over_limit"
	codeUnknownProfile   = "unknown_pacing_profile"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecases to HTTP handlers.
type Server struct {
	dispatch      *dispatchuc.Service
	campaigns     *campaignuc.Service
	budget        *budgetuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	dispatch *dispatchuc.Service,
	campaigns *campaignuc.Service,
	budget *budgetuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		dispatch:  dispatch,
		campaigns: campaigns,
		budget:    budget,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		budgetBlockedHandler,
		sentinelHandler(domain.ErrCampaignNotFound, http.StatusNotFound, codeCampaignNotFound),
		sentinelHandler(domain.ErrCampaignExists, http.StatusConflict, codeCampaignExists),
		sentinelHandler(domain.ErrCampaignPaused, http.StatusConflict, codeCampaignPaused),
		sentinelHandler(domain.ErrCampaignCanceled, http.StatusConflict, codeCampaignCanceled),
		sentinelHandler(domain.ErrUnknownPacingProfile, http.StatusBadRequest, codeUnknownProfile),
		sentinelHandler(domain.ErrTenantRequired, http.StatusBadRequest, codeValidationFailed),
	}
	return s
}

// Routes mounts all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants/{tenantId}/campaigns", func(r chi.Router) {
			r.Post("/", s.CreateCampaign)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetCampaign)
				r.Get("/ledger", s.GetCampaignLedger)
				r.Post("/send", s.SendCampaign)
				r.Post("/resume-send", s.ResumeCampaign)
				r.Post("/retry-errors", s.RetryCampaignErrors)
				r.Post("/pause", s.PauseCampaign)
			})
		})
		r.Get("/llm-budget-status", s.BudgetStatus)
		r.Post("/admin/llm-usage/{clientId}", s.AdminUsage)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

type createCampaignRequest struct {
	Message       string   `json:"message"`
	PacingProfile string   `json:"pacingProfile"`
	ListID        string   `json:"listId"`
	Tags          []string `json:"tags"`
}

// CreateCampaign handles POST /api/v1/tenants/{tenantId}/campaigns.
func (s *Server) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "message is required")
		return
	}

	c, err := s.campaigns.Create(r.Context(), campaignuc.CreateInput{
		TenantID:      chi.URLParam(r, "tenantId"),
		Message:       req.Message,
		PacingProfile: req.PacingProfile,
		Target:        domcampaign.TargetSpec{ListID: req.ListID, Tags: req.Tags},
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "campaign": campaignToJSON(c)})
}

// GetCampaign handles GET /api/v1/tenants/{tenantId}/campaigns/{id}.
func (s *Server) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "campaign": campaignToJSON(c)})
}

// GetCampaignLedger handles GET /api/v1/tenants/{tenantId}/campaigns/{id}/ledger.
func (s *Server) GetCampaignLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.campaigns.Ledger(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": ledgerToJSON(entries)})
}

// SendCampaign handles POST /api/v1/tenants/{tenantId}/campaigns/{id}/send.
func (s *Server) SendCampaign(w http.ResponseWriter, r *http.Request) {
	s.runDispatch(w, r, s.dispatch.Send)
}

// ResumeCampaign handles POST /api/v1/tenants/{tenantId}/campaigns/{id}/resume-send.
func (s *Server) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	s.runDispatch(w, r, s.dispatch.Resume)
}

// RetryCampaignErrors handles POST /api/v1/tenants/{tenantId}/campaigns/{id}/retry-errors.
func (s *Server) RetryCampaignErrors(w http.ResponseWriter, r *http.Request) {
	s.runDispatch(w, r, s.dispatch.RetryErrors)
}

func (s *Server) runDispatch(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, tenantID, campaignID string) (dispatchuc.Result, error),
) {
	res, err := run(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"mode":     res.Mode,
		"summary":  res.Summary,
		"daily":    dailyToJSON(res.Daily),
		"campaign": campaignToJSON(res.Campaign),
	})
}

// PauseCampaign handles POST /api/v1/tenants/{tenantId}/campaigns/{id}/pause.
func (s *Server) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	res, err := s.dispatch.Pause(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"campaign":        campaignToJSON(res.Campaign),
		"canceledPending": res.CanceledPending,
	})
}

// BudgetStatus handles GET /api/v1/llm-budget-status.
func (s *Server) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "clientId is required")
		return
	}

	c := dombudget.ContextInbound
	if raw := r.URL.Query().Get("context"); raw != "" {
		c = dombudget.Context(raw)
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown context "+raw)
			return
		}
	}

	d, err := s.budget.Decide(r.Context(), clientID, c)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "decision": decisionToJSON(d)})
}

type adminUsageRequest struct {
	ResetMonth string `json:"resetMonth"`
	Context    string `json:"context"`
	Add        *struct {
		PromptTokens     int64  `json:"promptTokens"`
		CompletionTokens int64  `json:"completionTokens"`
		TotalTokens      int64  `json:"totalTokens"`
		Provider         string `json:"provider"`
		Model            string `json:"model"`
		MonthKey         string `json:"monthKey"`
	} `json:"add"`
}

// AdminUsage handles POST /api/v1/admin/llm-usage/{clientId}. It is the
// ops and test hook for mutating the usage ledger directly.
func (s *Server) AdminUsage(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")

	var req adminUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ResetMonth == "" && req.Add == nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "nothing to do: provide resetMonth or add")
		return
	}

	resp := map[string]any{"ok": true}

	if req.ResetMonth != "" {
		if err := s.usage.Reset(r.Context(), clientID, req.ResetMonth); err != nil {
			s.handleDomainError(w, err)
			return
		}
	}

	if req.Add != nil {
		u, err := s.usage.Add(r.Context(), clientID, req.Add.MonthKey, dombudget.Context(req.Context),
			domusage.Delta{
				PromptTokens:     req.Add.PromptTokens,
				CompletionTokens: req.Add.CompletionTokens,
				TotalTokens:      req.Add.TotalTokens,
				Provider:         req.Add.Provider,
				Model:            req.Add.Model,
			})
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp["usage"] = usageToJSON(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- response shaping ---

func campaignToJSON(c domcampaign.Campaign) map[string]any {
	return map[string]any{
		"id":            c.ID(),
		"tenantId":      c.TenantID(),
		"status":        c.Status(),
		"message":       c.Message(),
		"pacingProfile": c.PacingProfile(),
		"target": map[string]any{
			"listId": c.Target().ListID,
			"tags":   c.Target().Tags,
		},
		"createdAt": c.CreatedAt(),
	}
}

func dailyToJSON(res domquota.Reservation) map[string]any {
	return map[string]any{
		"allowed":    res.Allowed(),
		"limit":      res.Limit(),
		"usedBefore": res.UsedBefore(),
		"usedAfter":  res.UsedAfter(),
		"date":       res.Date(),
		"exhausted":  res.Exhausted(),
	}
}

func decisionToJSON(d dombudget.Decision) map[string]any {
	return map[string]any{
		"action":    d.Action(),
		"usagePct":  d.UsagePct(),
		"overLimit": d.OverLimit(),
		"severity":  d.Severity(),
		"message":   d.Message(),
		"snapshot":  snapshotToJSON(d.Snapshot()),
	}
}

func snapshotToJSON(s dombudget.Snapshot) map[string]any {
	return map[string]any{
		"used":      s.Used(),
		"limit":     s.Limit(),
		"remaining": s.Remaining(),
		"monthKey":  s.MonthKey(),
	}
}

func usageToJSON(u domusage.MonthlyUsage) map[string]any {
	out := map[string]any{
		"tenantId": u.TenantID(),
		"monthKey": u.MonthKey(),
		"totals":   totalsToJSON(u.Totals()),
	}
	if len(u.ByContext()) > 0 {
		byCtx := make(map[string]any, len(u.ByContext()))
		for name, t := range u.ByContext() {
			byCtx[name] = totalsToJSON(t)
		}
		out["byContext"] = byCtx
	}
	return out
}

func totalsToJSON(t domusage.Totals) map[string]any {
	return map[string]any{
		"totalTokens":      t.TotalTokens,
		"promptTokens":     t.PromptTokens,
		"completionTokens": t.CompletionTokens,
	}
}

type ledgerEntryJSON struct {
	ContactID string `json:"contactId"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

func ledgerToJSON(entries map[string]domledger.Entry) []ledgerEntryJSON {
	out := make([]ledgerEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryJSON{
			ContactID: e.ContactID(),
			Status:    string(e.Status()),
			CreatedAt: e.CreatedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out
}

// --- error plumbing ---

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message, Error: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCampaignNotFound,
		domain.ErrCampaignExists,
		domain.ErrCampaignPaused,
		domain.ErrCampaignCanceled,
		domain.ErrTenantRequired,
		domain.ErrBudgetBlocked,
		domain.ErrUnknownPacingProfile,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// budgetBlockedHandler maps a hard budget block to 402 with the usage
// snapshot the decision was computed from.
func budgetBlockedHandler(w http.ResponseWriter, err error, msg string) bool {
	var blocked *dombudget.BlockedError
	if !errors.As(err, &blocked) {
		return false
	}
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"code":     codeBudgetOverLimit,
		"error":    msg,
		"message":  blocked.Decision.Message(),
		"snapshot": snapshotToJSON(blocked.Decision.Snapshot()),
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
