package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/libs/httpx"
	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/slots"
)

type SlotService interface {
	Unpacked(ctx context.Context, userID string, from, to time.Time) (slots.Unpacked, error)
	Bookable(ctx context.Context, q slots.Query) (slots.Result, error)
	SetNotice(ctx context.Context, userID string, minutes int) error
}

type SlotHandler struct {
	svc      SlotService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewSlotHandler(svc SlotService, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{svc: svc, logger: logger, validate: newValidator()}
}

type noticeRequest struct {
	Notice *int `json:"notice" validate:"required,min=0,max=10080"`
}

type eventItem struct {
	RuleID string `json:"rule_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type slotItem struct {
	RuleID string `json:"rule_id"`
	UserID string `json:"user_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type slotsResponse struct {
	UserID   string     `json:"user_id"`
	Notice   int        `json:"notice"`
	Duration int        `json:"duration"`
	Items    []slotItem `json:"items"`
}

type unpackedResponse struct {
	Rules  []ruleResponse `json:"rules"`
	Events []eventItem    `json:"events"`
}

// window reads user_id, start and end from the query string. fallback is
// used when user_id is absent.
func window(r *http.Request, fallback string) (string, time.Time, time.Time, string) {
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user_id"))
	if userID == "" {
		userID = fallback
	}
	if userID == "" {
		return "", time.Time{}, time.Time{}, "missing user_id"
	}
	from, err := timex.ParseInstant(q.Get("start"))
	if err != nil {
		return "", time.Time{}, time.Time{}, "invalid start"
	}
	to, err := timex.ParseInstant(q.Get("end"))
	if err != nil {
		return "", time.Time{}, time.Time{}, "invalid end"
	}
	return userID, from, to, ""
}

// Unpacked lists a user's rules and the events they leave free in the window.
func (h *SlotHandler) Unpacked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	userID, from, to, msg := window(r, p.UserID)
	if msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := h.svc.Unpacked(r.Context(), userID, from, to)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := unpackedResponse{
		Rules:  make([]ruleResponse, 0, len(res.Rules)),
		Events: make([]eventItem, 0, len(res.Events)),
	}
	for _, rule := range res.Rules {
		resp.Rules = append(resp.Rules, toRuleResponse(rule))
	}
	for _, e := range res.Events {
		resp.Events = append(resp.Events, eventItem{RuleID: e.RuleID, Start: timex.FormatInstant(e.Start), End: timex.FormatInstant(e.End)})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Slots lists bookable lesson slots of a tutor or interviewer.
func (h *SlotHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, from, to, msg := window(r, "")
	if msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	var lesson time.Duration
	if raw := strings.TrimSpace(r.URL.Query().Get("duration")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		lesson = time.Duration(minutes) * time.Minute
	}

	res, err := h.svc.Bookable(r.Context(), slots.Query{UserID: userID, From: from, To: to, Lesson: lesson})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	items := make([]slotItem, 0, len(res.Slots))
	for _, s := range res.Slots {
		items = append(items, slotItem{
			RuleID: s.RuleID,
			UserID: s.UserID,
			Start:  timex.FormatInstant(s.Start),
			End:    timex.FormatInstant(s.End),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		UserID:   userID,
		Notice:   res.Notice,
		Duration: int(res.Lesson / time.Minute),
		Items:    items,
	})
}

// Notice sets the caller's booking notice in minutes.
func (h *SlotHandler) Notice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req noticeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.svc.SetNotice(r.Context(), p.UserID, *req.Notice); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user_id": p.UserID, "notice": *req.Notice})
}
