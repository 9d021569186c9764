package middleware

import (
	"net/http"
	"strconv"

	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/contextkeys"
	"github.com/platinummonkey/backoffice/pkg/httputil"
)

// Identity headers injected by the fronting reverse proxy. The proxy
// authenticates the caller; this service only maps the result to an Actor.
const (
	HeaderUserID    = "X-Backoffice-User-Id"
	HeaderCompanyID = "X-Backoffice-Company-Id"
	HeaderRole      = "X-Backoffice-Role"
)

// Identity maps trusted identity headers to an auth.Actor on the request
// context. Requests without a complete, valid identity are rejected with
// 401 before reaching any handler.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromHeaders(r)
		if !ok {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "missing or invalid identity")
			return
		}

		ctx := contextkeys.WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromHeaders(r *http.Request) (*auth.Actor, bool) {
	userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || userID <= 0 {
		return nil, false
	}

	role := auth.Role(r.Header.Get(HeaderRole))
	if !role.Valid() {
		return nil, false
	}

	// Super-admins are not scoped to a company; the header may be absent.
	var companyID int64
	if raw := r.Header.Get(HeaderCompanyID); raw != "" {
		companyID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || companyID <= 0 {
			return nil, false
		}
	}
	if companyID == 0 && !role.IsSuperAdmin() {
		return nil, false
	}

	return &auth.Actor{UserID: userID, CompanyID: companyID, Role: role}, true
}
