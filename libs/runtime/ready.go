package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name     string
	Check    func(context.Context) error
	Optional bool
}

// NewBaseMuxWithReady returns a mux serving /healthz and /readyz. Optional
// checks are reported in the body but never fail readiness.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writePlain(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		var failures, degraded []string
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err == nil {
				continue
			}
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			if check.Optional {
				degraded = append(degraded, name+": "+err.Error())
				continue
			}
			failures = append(failures, name+": "+err.Error())
		}
		if len(failures) > 0 {
			writePlain(w, http.StatusServiceUnavailable, strings.Join(append(failures, degraded...), "; "))
			return
		}
		if len(degraded) > 0 {
			writePlain(w, http.StatusOK, "degraded: "+strings.Join(degraded, "; "))
			return
		}
		writePlain(w, http.StatusOK, "ok")
	})
	return mux
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
