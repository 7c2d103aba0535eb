package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"pointer/internal/authform"
	"pointer/internal/browser"
	"pointer/internal/identity"
	"pointer/internal/pricing"
	"pointer/internal/redirect"
	"pointer/internal/session"
	dErrors "pointer/pkg/domain-errors"
	"pointer/pkg/platform/httputil"
	"pointer/pkg/requestcontext"
)

// Providers hands out the mounted session Provider of a browser.
type Providers interface {
	Get(ctx context.Context, browserID string) (*session.Provider, error)
}

// IdentityFunc returns the identity client scoped to a browser.
type IdentityFunc func(browserID string) identity.Provider

// Handler is the thin HTTP layer. It delegates to the session, redirect,
// auth form and pricing services without holding business logic.
type Handler struct {
	providers Providers
	identity  IdentityFunc
	redirects *redirect.Service
	forms     *authform.Controller
	plans     pricing.Lister
	jar       *browser.Jar
	pages     *Pages
	logger    *slog.Logger
}

type Deps struct {
	Providers Providers
	Identity  IdentityFunc
	Redirects *redirect.Service
	Forms     *authform.Controller
	Plans     pricing.Lister
	Jar       *browser.Jar
	Pages     *Pages
	Logger    *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		providers: d.Providers,
		identity:  d.Identity,
		redirects: d.Redirects,
		forms:     d.Forms,
		plans:     d.Plans,
		jar:       d.Jar,
		pages:     d.Pages,
		logger:    d.Logger,
	}
}

// provider resolves the browser's session Provider. A nil result means the
// response has already been written.
func (h *Handler) provider(w http.ResponseWriter, r *http.Request) *session.Provider {
	ctx := r.Context()
	p, err := h.providers.Get(ctx, requestcontext.BrowserID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "session provider not ready",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if p == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "session unavailable"))
	}
	return p
}

func (h *Handler) browserIdentity(r *http.Request) identity.Provider {
	return h.identity(requestcontext.BrowserID(r.Context()))
}

func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
