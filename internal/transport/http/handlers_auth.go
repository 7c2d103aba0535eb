package httptransport

import (
	"net/http"

	"pointer/internal/authform"
	"pointer/internal/redirect"
	"pointer/pkg/requestcontext"
)

// handleAuthPage renders the sign-in / sign-up page. A browser that already
// has a session goes straight to its profile.
func (h *Handler) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	p := h.provider(w, r)
	if p == nil {
		return
	}
	if h.redirects.IsAuthenticated(p) || p.Refresh(r.Context()) != nil {
		seeOther(w, r, redirect.ProfileRoute)
		return
	}

	st, ok := h.jar.FormState(r)
	view := r.URL.Query().Get("view")
	switch {
	case !ok:
		st = authform.NewFormState(authform.ParseView(view))
	case view != "":
		st.ActiveView = authform.ParseView(view)
	}

	h.pages.render(w, r, "auth", authPage{
		pageData: pageData{Title: "Sign in"},
		Form:     st,
	})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	values, ok := h.formValues(w, r)
	if !ok {
		return
	}
	prev, _ := h.jar.FormState(r)
	res := h.forms.SignIn(r.Context(), h.browserIdentity(r), prev, values)
	h.finishForm(w, r, res)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	values, ok := h.formValues(w, r)
	if !ok {
		return
	}
	prev, _ := h.jar.FormState(r)
	res := h.forms.SignUp(r.Context(), h.browserIdentity(r), prev, values)
	h.finishForm(w, r, res)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	prev, _ := h.jar.FormState(r)
	res := h.forms.Resend(r.Context(), h.browserIdentity(r), prev)
	h.finishForm(w, r, res)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := h.currentUser(r)
	target := h.forms.SignOut(ctx, h.browserIdentity(r), user)
	if err := h.jar.ClearFormState(w, r); err != nil {
		h.logger.WarnContext(ctx, "failed to clear form state", "error", err)
	}
	seeOther(w, r, target)
}

// finishForm stores the page state, or clears it when the action navigates
// away, and redirects.
func (h *Handler) finishForm(w http.ResponseWriter, r *http.Request, res authform.Result) {
	ctx := r.Context()
	if res.Redirect != "" {
		if err := h.jar.ClearFormState(w, r); err != nil {
			h.logger.WarnContext(ctx, "failed to clear form state", "error", err)
		}
		seeOther(w, r, res.Redirect)
		return
	}
	if err := h.jar.SaveFormState(w, r, res.State); err != nil {
		h.logger.ErrorContext(ctx, "failed to save form state",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	seeOther(w, r, "/auth?view="+string(res.State.ActiveView))
}

// formValues keeps only submitted fields so a missing field stays
// distinguishable from an empty one.
func (h *Handler) formValues(w http.ResponseWriter, r *http.Request) (authform.Values, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return nil, false
	}
	values := authform.Values{}
	for _, field := range []string{authform.FieldEmail, authform.FieldPassword, authform.FieldConfirmPassword} {
		if v, ok := r.PostForm[field]; ok && len(v) > 0 {
			values[field] = v[0]
		}
	}
	return values, true
}
