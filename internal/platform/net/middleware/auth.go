package middleware

import (
	"net/http"

	pnet "repolyze/internal/platform/net"
)

// AuthPort is the seam the identity collaborator implements.
// Identity management itself is out of scope; the pipeline only needs an
// account id (or absence of one) to resolve a quota tier
type AuthPort interface {
	// Parse returns the account id from the request or an error.
	// Empty id with nil error means anonymous
	Parse(r *http.Request) (accountID string, err error)
}

// HeaderAuth trusts a fronting proxy to have verified identity and reads
// the account id from a request header. An absent header means anonymous
type HeaderAuth struct {
	// Header names the identity header; defaults to X-Account-Id
	Header string
}

// Parse implements AuthPort
func (h HeaderAuth) Parse(r *http.Request) (string, error) {
	name := h.Header
	if name == "" {
		name = "X-Account-Id"
	}
	return r.Header.Get(name), nil
}

// Auth resolves the optional identity and stashes it on the context.
// When no port is wired every request is anonymous
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithAccount(r.Context(), id)))
		})
	}
}
