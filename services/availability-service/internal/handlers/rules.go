package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/libs/httpx"
	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/rules"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

// RuleService is the rule lifecycle used by the HTTP layer.
type RuleService interface {
	Create(ctx context.Context, p auth.Principal, in rules.Input) (model.Rule, error)
	Update(ctx context.Context, p auth.Principal, id string, patch rules.Patch) (model.Rule, error)
	Delete(ctx context.Context, p auth.Principal, id string) (bool, error)
	List(ctx context.Context, userID string) ([]model.Rule, error)
	Get(ctx context.Context, id string) (model.Rule, error)
	CheckOverlap(ctx context.Context, userID string, in rules.Input) (model.Rule, bool, error)
}

type RuleHandler struct {
	svc      RuleService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewRuleHandler(svc RuleService, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{svc: svc, logger: logger, validate: newValidator()}
}

type ruleRequest struct {
	Title     string `json:"title" validate:"max=255"`
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	Time      string `json:"time" validate:"required"`
	Duration  int    `json:"duration" validate:"gt=0,lte=1440"`
	Weekdays  []int  `json:"weekdays" validate:"omitempty,max=7,dive,min=0,max=6"`
	Monthday  *int   `json:"monthday" validate:"omitempty,min=1,max=31"`
	Activated *bool  `json:"activated"`
}

type updateRuleRequest struct {
	ID        string  `json:"id" validate:"required"`
	Title     *string `json:"title" validate:"omitempty,max=255"`
	Frequency *string `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
	Time      *string `json:"time"`
	Duration  *int    `json:"duration" validate:"omitempty,gt=0,lte=1440"`
	Weekdays  *[]int  `json:"weekdays" validate:"omitempty,max=7,dive,min=0,max=6"`
	Monthday  *int    `json:"monthday" validate:"omitempty,min=1,max=31"`
	Activated *bool   `json:"activated"`
}

type deleteRuleRequest struct {
	ID string `json:"id" validate:"required"`
}

type ruleResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Frequency string `json:"frequency"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Time      string `json:"time"`
	Duration  int    `json:"duration"`
	Weekdays  []int  `json:"weekdays,omitempty"`
	Monthday  *int   `json:"monthday,omitempty"`
	Activated bool   `json:"activated"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ruleDetailResponse struct {
	ruleResponse
	Description string `json:"description"`
	RRule       string `json:"rrule,omitempty"`
}

type overlapResponse struct {
	Overlaps bool          `json:"overlaps"`
	Rule     *ruleResponse `json:"rule,omitempty"`
}

func toRuleResponse(r model.Rule) ruleResponse {
	out := ruleResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Frequency: r.Frequency,
		Start:     timex.FormatInstant(r.Start),
		End:       timex.FormatInstant(r.End),
		Time:      r.Time,
		Duration:  r.Duration,
		Weekdays:  r.Weekdays,
		Monthday:  r.Monthday,
		Activated: r.Activated,
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = timex.FormatInstant(r.CreatedAt)
	}
	if !r.UpdatedAt.IsZero() {
		out.UpdatedAt = timex.FormatInstant(r.UpdatedAt)
	}
	return out
}

func (req ruleRequest) input() (rules.Input, error) {
	start, err := timex.ParseInstant(req.Start)
	if err != nil {
		return rules.Input{}, err
	}
	end, err := timex.ParseInstant(req.End)
	if err != nil {
		return rules.Input{}, err
	}
	activated := true
	if req.Activated != nil {
		activated = *req.Activated
	}
	return rules.Input{
		Title:     req.Title,
		Frequency: req.Frequency,
		Start:     start,
		End:       end,
		Time:      req.Time,
		Duration:  req.Duration,
		Weekdays:  req.Weekdays,
		Monthday:  req.Monthday,
		Activated: activated,
	}, nil
}

func (req updateRuleRequest) patch() (rules.Patch, error) {
	p := rules.Patch{
		Title:     req.Title,
		Frequency: req.Frequency,
		Time:      req.Time,
		Duration:  req.Duration,
		Weekdays:  req.Weekdays,
		Monthday:  req.Monthday,
		Activated: req.Activated,
	}
	for _, f := range []struct {
		raw *string
		dst **time.Time
	}{{req.Start, &p.Start}, {req.End, &p.End}} {
		if f.raw == nil {
			continue
		}
		t, err := timex.ParseInstant(*f.raw)
		if err != nil {
			return rules.Patch{}, err
		}
		*f.dst = &t
	}
	return p, nil
}

// Rules serves GET (list a user's rules) and POST (create a rule).
func (h *RuleHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *RuleHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		p, _ := auth.PrincipalFromContext(r.Context())
		userID = p.UserID
	}
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	items := make([]ruleResponse, 0, len(list))
	for _, rule := range list {
		items = append(items, toRuleResponse(rule))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *RuleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	created, err := h.svc.Create(r.Context(), p, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toRuleResponse(created))
}

// Get returns one rule with its English description and RRULE.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing id")
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := ruleDetailResponse{ruleResponse: toRuleResponse(row)}
	if sr, err := row.Schedule(); err == nil {
		resp.Description = schedule.Describe(sr)
		if rr, err := schedule.RRule(sr); err == nil {
			resp.RRule = rr
		}
	} else {
		h.logger.Warn("stored rule does not validate", "rule_id", row.ID, "err", err)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req updateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	updated, err := h.svc.Update(r.Context(), p, req.ID, patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRuleResponse(updated))
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req deleteRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	soft, err := h.svc.Delete(r.Context(), p, req.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": req.ID, "soft_deleted": soft})
}

// Overlap checks a rule definition against the caller's rules without
// saving it.
func (h *RuleHandler) Overlap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	hit, found, err := h.svc.CheckOverlap(r.Context(), p.UserID, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := overlapResponse{Overlaps: found}
	if found {
		rr := toRuleResponse(hit)
		resp.Rule = &rr
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
