package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pointer/internal/identity"
	"pointer/internal/pricing"
	"pointer/internal/redirect"
	"pointer/pkg/platform/httputil"
	"pointer/pkg/requestcontext"
)

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	section := pricing.NewSection(h.plans, h.logger)
	state := section.Load(r.Context())

	h.pages.render(w, r, "home", homePage{
		pageData: pageData{Title: "Home", Authenticated: h.redirects.IsAuthenticated(p)},
		Billing:  pricing.ParseBilling(r.URL.Query().Get("billing")),
		Pricing:  state,
	})
}

// handleStart is the landing page call to action.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	seeOther(w, r, h.redirects.Redirect(r.Context(), p, nil))
}

// handleSelectPlan sends signed-in visitors to their profile and everyone
// else to the plan's call-to-action link.
func (h *Handler) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := h.plans.ListPlans(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load pricing plans", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	plan, err := pricing.FindBySlug(plans, chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p := h.provider(w, r)
	if p == nil {
		return
	}
	target := h.redirects.Redirect(ctx, p, &redirect.Options{UnauthenticatedTarget: pricing.NewCard(plan).Href})
	seeOther(w, r, target)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	target := h.redirects.Redirect(r.Context(), p, &redirect.Options{UnauthenticatedTarget: redirect.LoginRoute})
	user := p.State().User
	if target != redirect.ProfileRoute || user == nil {
		seeOther(w, r, redirect.LoginRoute)
		return
	}

	h.pages.render(w, r, "profile", profilePage{
		pageData: pageData{Title: "Profile", Authenticated: true},
		User:     user,
	})
}

// currentUser returns the cached user without consulting the provider.
func (h *Handler) currentUser(r *http.Request) *identity.User {
	p, err := h.providers.Get(r.Context(), requestcontext.BrowserID(r.Context()))
	if err != nil || p == nil {
		return nil
	}
	return p.State().User
}
