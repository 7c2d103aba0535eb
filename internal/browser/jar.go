// Package browser identifies the visitor behind a request. Each browser
// carries a signed, encrypted cookie holding a random browser ID; the
// identity layer scopes sessions and providers to that ID.
package browser

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"pointer/internal/authform"
	"pointer/internal/platform/config"
	"pointer/pkg/requestcontext"
)

const (
	keyBrowserID = "bid"
	keyForm      = "form"
)

// Jar reads and writes the browser cookie.
type Jar struct {
	store  *sessions.CookieStore
	name   string
	logger *slog.Logger
}

// NewJar derives the cookie signing and encryption keys from the session
// secret.
func NewJar(cfg config.Session, logger *slog.Logger) (*Jar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hashKey, blockKey, err := deriveKeys([]byte(cfg.Secret))
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(cfg.MaxAge.Seconds()))

	return &Jar{store: store, name: cfg.CookieName, logger: logger}, nil
}

func deriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("pointer browser cookie hash")), hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive cookie hash key: %w", err)
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("pointer browser cookie block")), blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive cookie block key: %w", err)
	}
	return hashKey, blockKey, nil
}

// Middleware resolves the browser ID, issuing a new one when the cookie is
// missing or unreadable, and stores it in the request context.
func (j *Jar) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := j.store.Get(r, j.name)
		if err != nil {
			j.logger.DebugContext(r.Context(), "discarding unreadable browser cookie", "error", err)
		}

		id, _ := sess.Values[keyBrowserID].(string)
		if _, perr := uuid.Parse(id); perr != nil {
			id = uuid.NewString()
			sess.Values[keyBrowserID] = id
			if err := sess.Save(r, w); err != nil {
				j.logger.ErrorContext(r.Context(), "failed to issue browser cookie", "error", err)
			}
		}

		ctx := requestcontext.WithBrowserID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FormState returns the auth page state saved by the last form post.
func (j *Jar) FormState(r *http.Request) (authform.FormState, bool) {
	sess, err := j.store.Get(r, j.name)
	if err != nil {
		return authform.FormState{}, false
	}
	st, ok := sess.Values[keyForm].(authform.FormState)
	return st, ok
}

// SaveFormState keeps st until it is replaced or cleared. Must be called
// before the response is written.
func (j *Jar) SaveFormState(w http.ResponseWriter, r *http.Request, st authform.FormState) error {
	sess, err := j.store.Get(r, j.name)
	if err != nil {
		return fmt.Errorf("load browser cookie: %w", err)
	}
	sess.Values[keyForm] = st
	return sess.Save(r, w)
}

func (j *Jar) ClearFormState(w http.ResponseWriter, r *http.Request) error {
	sess, err := j.store.Get(r, j.name)
	if err != nil {
		return fmt.Errorf("load browser cookie: %w", err)
	}
	if _, ok := sess.Values[keyForm]; !ok {
		return nil
	}
	delete(sess.Values, keyForm)
	return sess.Save(r, w)
}
