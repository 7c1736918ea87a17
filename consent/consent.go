// Package consent records whether a visitor accepted analytics cookies and
// renders the tag-manager snippet only after they did.
package consent

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// CookieName is the fixed key the decision is persisted under.
	CookieName = "cookie_consent"
	// AcceptedValue is the only value that means anything.
	AcceptedValue = "accepted"
	// AcceptedEvent is pushed to the data layer once the visitor accepts.
	AcceptedEvent = "cookie_consent_accepted"

	cookieMaxAge = 365 * 24 * time.Hour
	contextKey   = "consent_state"
)

// State is the visitor's recorded decision.
type State int

const (
	// Undecided means no decision is persisted.
	Undecided State = iota
	Accepted
	// Declined is any persisted value other than AcceptedValue.
	Declined
)

func (s State) String() string {
	switch s {
	case Accepted:
		return AcceptedValue
	case Declined:
		return "declined"
	}
	return "undecided"
}

// ShowPrompt reports whether the consent modal should be rendered: only
// while no decision is persisted.
func (s State) ShowPrompt() bool {
	return s == Undecided
}

// FromRequest reads the decision from the request cookies.
func FromRequest(r *http.Request) State {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Undecided
	}
	if c.Value == AcceptedValue {
		return Accepted
	}
	return Declined
}

// Accept persists the accepted decision on the response.
func Accept(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    AcceptedValue,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// Middleware evaluates the decision once per request and stores it on the
// echo context.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, FromRequest(c.Request()))
			return next(c)
		}
	}
}

// Get returns the decision stored by Middleware, falling back to reading
// the request directly.
func Get(c echo.Context) State {
	if s, ok := c.Get(contextKey).(State); ok {
		return s
	}
	return FromRequest(c.Request())
}

// Set overrides the decision for the rest of the request, used right after
// Accept so the same response already renders the analytics tags.
func Set(c echo.Context, s State) {
	c.Set(contextKey, s)
}
