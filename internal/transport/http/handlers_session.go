package httptransport

import (
	"net/http"
	"time"

	"pointer/internal/session"
	"pointer/pkg/platform/httputil"
)

type sessionUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"displayName"`
	CreatedAt        time.Time  `json:"createdAt"`
	EmailConfirmedAt *time.Time `json:"emailConfirmedAt"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Loading       bool         `json:"loading"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty"`
	User          *sessionUser `json:"user"`
}

// toSessionResponse never exposes tokens.
func toSessionResponse(st session.State) sessionResponse {
	resp := sessionResponse{Authenticated: st.Authenticated(), Loading: st.Loading}
	if st.Session != nil && st.Session.ExpiresAt > 0 {
		exp := time.Unix(st.Session.ExpiresAt, 0).UTC()
		resp.ExpiresAt = &exp
	}
	if u := st.User; u != nil {
		resp.User = &sessionUser{
			ID:               u.ID,
			Email:            u.Email,
			DisplayName:      u.DisplayName(),
			CreatedAt:        u.CreatedAt,
			EmailConfirmedAt: u.EmailConfirmedAt,
		}
	}
	return resp
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(p.State()))
}

func (h *Handler) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	p.Refresh(r.Context())
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(p.State()))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
