package handlers

import (
	"net/http"

	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/libs/httpx"
	"github.com/litespace/availability/services/availability-service/internal/rules"
)

// Guards are the middlewares placed in front of route groups. Nil entries
// are skipped.
type Guards struct {
	Auth   httpx.Middleware
	Public httpx.Middleware
}

func Register(mux *http.ServeMux, rh *RuleHandler, sh *SlotHandler, g Guards) {
	owner := auth.RequireRole(rules.RuleOwnerRoles...)

	mux.Handle("/api/v1/rules", httpx.Chain(http.HandlerFunc(rh.Rules), g.Auth))
	mux.Handle("/api/v1/rules/get", httpx.Chain(http.HandlerFunc(rh.Get), g.Auth))
	mux.Handle("/api/v1/rules/update", httpx.Chain(http.HandlerFunc(rh.Update), g.Auth, owner))
	mux.Handle("/api/v1/rules/delete", httpx.Chain(http.HandlerFunc(rh.Delete), g.Auth, owner))
	mux.Handle("/api/v1/rules/overlap", httpx.Chain(http.HandlerFunc(rh.Overlap), g.Auth, owner))
	mux.Handle("/api/v1/tutors/notice", httpx.Chain(http.HandlerFunc(sh.Notice), g.Auth, owner))
	mux.Handle("/api/v1/rules/unpacked", httpx.Chain(http.HandlerFunc(sh.Unpacked), g.Auth))
	mux.Handle("/api/v1/public/slots", httpx.Chain(http.HandlerFunc(sh.Slots), g.Public))
}
