package http

import (
	"bufio"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"repolyze/internal/core/repokey"
	phttp "repolyze/internal/platform/net/http"
	"repolyze/internal/platform/net/middleware"
	"repolyze/internal/services/analyze/domain"
	quotadom "repolyze/internal/services/quota/domain"
)

type fakeAnalyzer struct {
	events []domain.Event
	gotKey repokey.Key
}

func (f *fakeAnalyzer) Analyze(_ context.Context, key repokey.Key, _ quotadom.Decision, emit domain.EmitFunc) error {
	f.gotKey = key
	for _, ev := range f.events {
		if err := emit(ev); err != nil {
			return nil
		}
	}
	return nil
}

type fakeAdmitter struct {
	dec quotadom.Decision
	got quotadom.AdmitInput
}

func (f *fakeAdmitter) Admit(_ context.Context, in quotadom.AdmitInput) quotadom.Decision {
	f.got = in
	return f.dec
}

func newTestServer(t *testing.T, svc domain.AnalyzerPort, adm *fakeAdmitter, configured bool) *httptest.Server {
	t.Helper()
	mux := chi.NewMux()
	mux.Use(middleware.Auth(middleware.HeaderAuth{}, phttp.JSON))
	r := phttp.AdaptChi(mux)
	Register(r, svc, adm, func() bool { return configured })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func allowDecision() quotadom.Decision {
	return quotadom.Decision{Allowed: true, Tier: quotadom.TierFree, Limit: 3, Remaining: 2}
}

func TestAnalyzeStreamsEvents(t *testing.T) {
	svc := &fakeAnalyzer{events: []domain.Event{
		{Type: domain.EventMetadata},
		{Type: domain.EventScores},
		{Type: domain.EventAutomations},
		{Type: domain.EventRefactors},
		{Type: domain.EventContent, Data: "hello"},
		{Type: domain.EventDone, Data: domain.DoneData{}},
	}}
	srv := newTestServer(t, svc, &fakeAdmitter{dec: allowDecision()}, true)

	resp, err := srv.Client().Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"url":"acme/widgets","branch":"main"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var types []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		types = append(types, ev.Type)
	}
	want := []string{"tier", "metadata", "scores", "automations", "refactors", "content", "done"}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("frame %d = %s, want %s", i, types[i], want[i])
		}
	}
	if svc.gotKey.String() != "acme/widgets:main" {
		t.Fatalf("key = %s", svc.gotKey)
	}
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, &fakeAdmitter{dec: allowDecision()}, true)
	resp, err := srv.Client().Post(srv.URL+"/", "application/json", strings.NewReader(`{"url":`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRejectsInvalidReference(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, &fakeAdmitter{dec: allowDecision()}, true)
	resp, err := srv.Client().Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"url":"https://gitlab.com/acme/widgets"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, &fakeAdmitter{dec: allowDecision()}, true)
	big := `{"url":"acme/widgets","branch":"` + strings.Repeat("x", 11<<10) + `"}`
	resp, err := srv.Client().Post(srv.URL+"/", "application/json", strings.NewReader(big))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 413 {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestAnalyzeUnconfiguredProvider(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, &fakeAdmitter{dec: allowDecision()}, false)
	resp, err := srv.Client().Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"url":"acme/widgets"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestAnalyzeQuotaDenial(t *testing.T) {
	dec := quotadom.Decision{
		Allowed:       false,
		Tier:          quotadom.TierFree,
		Limit:         3,
		Remaining:     0,
		Code:          quotadom.DenyDailyQuota,
		Message:       "daily limit reached",
		RetryAfterSec: 3600,
	}
	srv := newTestServer(t, &fakeAnalyzer{}, &fakeAdmitter{dec: dec}, true)
	resp, err := srv.Client().Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"url":"acme/widgets"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 429 {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if ra := resp.Header.Get("Retry-After"); ra != "3600" {
		t.Fatalf("Retry-After = %q", ra)
	}
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		Limit     int    `json:"limit"`
		Remaining int    `json:"remaining"`
		Tier      string `json:"tier"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "daily limit reached" || body.Code != string(quotadom.DenyDailyQuota) {
		t.Fatalf("body = %+v", body)
	}
	if body.Limit != 3 || body.Remaining != 0 || body.Tier != "free" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAnalyzeForwardsAccountIdentity(t *testing.T) {
	adm := &fakeAdmitter{dec: allowDecision()}
	srv := newTestServer(t, &fakeAnalyzer{}, adm, true)

	req, err := stdhttp.NewRequest("POST", srv.URL+"/", strings.NewReader(`{"url":"acme/widgets"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Account-Id", "acct-9")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if adm.got.AccountID != "acct-9" {
		t.Fatalf("account = %q, want acct-9", adm.got.AccountID)
	}
	if adm.got.Addr == "" {
		t.Fatalf("client address not forwarded")
	}
}
