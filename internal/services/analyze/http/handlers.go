// Package http provides the streaming analysis endpoint
package http

import (
	"encoding/json"
	"net"
	stdhttp "net/http"
	"strconv"

	"repolyze/internal/core/repokey"
	perr "repolyze/internal/platform/errors"
	pnet "repolyze/internal/platform/net"
	phttp "repolyze/internal/platform/net/http"
	"repolyze/internal/platform/net/http/bind"
	"repolyze/internal/services/analyze/domain"
	quotadom "repolyze/internal/services/quota/domain"
)

// Register mounts the analyze endpoint on the given router
func Register(r phttp.Router, svc domain.AnalyzerPort, admit quotadom.AdmitterPort, configured func() bool) {
	h := &handlers{svc: svc, admit: admit, configured: configured}
	r.Post("/", h.analyze)
}

type handlers struct {
	svc        domain.AnalyzerPort
	admit      quotadom.AdmitterPort
	configured func() bool
}

// denialBody is the quota denial payload, distinct from the envelope the
// rest of the API uses
type denialBody struct {
	Error     string        `json:"error"`
	Code      string        `json:"code,omitempty"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Tier      quotadom.Tier `json:"tier"`
}

// analyze validates the request, runs admission, then streams the analysis
// as data framed JSON events
func (h *handlers) analyze(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	in, err := bind.ParseJSON[domain.AnalyzeInput](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	key, err := repokey.Parse(in.URL, in.Branch)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}

	if !h.configured() {
		phttp.RespondError(w, r, perr.Configf("narrative provider is not configured"))
		return
	}

	dec := h.admit.Admit(r.Context(), quotadom.AdmitInput{
		Addr:      clientAddr(r),
		AccountID: pnet.AccountID(r.Context()),
	})
	if !dec.Allowed {
		if dec.RetryAfterSec > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfterSec))
		}
		phttp.JSON(w, stdhttp.StatusTooManyRequests, denialBody{
			Error:     dec.Message,
			Code:      string(dec.Code),
			Limit:     dec.Limit,
			Remaining: dec.Remaining,
			Tier:      dec.Tier,
		})
		return
	}

	flusher, _ := w.(stdhttp.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(stdhttp.StatusOK)

	emit := func(ev domain.Event) error {
		buf, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(append([]byte("data: "), buf...), '\n', '\n')); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := emit(domain.Event{Type: domain.EventTier, Data: domain.TierData{
		Tier:      dec.Tier,
		Limit:     dec.Limit,
		Remaining: dec.Remaining,
	}}); err != nil {
		return
	}

	_ = h.svc.Analyze(r.Context(), key, dec, emit)
}

// clientAddr extracts the peer address, tolerating a missing port after
// the real-ip middleware has rewritten RemoteAddr
func clientAddr(r *stdhttp.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
