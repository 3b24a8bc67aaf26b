package common

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie session shared by UI features.
const SessionName = "deployhook"

const (
	flashOK    = "ok"
	flashError = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Message string
	IsError bool
}

// AddFlash stores a message for the next page render.
func AddFlash(store sessions.Store, w http.ResponseWriter, r *http.Request, f Flash) error {
	session, err := store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	key := flashOK
	if f.IsError {
		key = flashError
	}
	session.AddFlash(f.Message, key)
	return session.Save(r, w)
}

// PopFlash returns and clears the pending messages. Both kinds are drained
// and an error wins over an ok message. A broken session cookie yields no
// flash.
func PopFlash(store sessions.Store, w http.ResponseWriter, r *http.Request) Flash {
	session, err := store.Get(r, SessionName)
	if err != nil || session == nil {
		return Flash{}
	}

	errs := session.Flashes(flashError)
	oks := session.Flashes(flashOK)
	if len(errs) == 0 && len(oks) == 0 {
		return Flash{}
	}
	_ = session.Save(r, w)

	if len(errs) > 0 {
		return Flash{Message: lastString(errs), IsError: true}
	}
	return Flash{Message: lastString(oks)}
}

func lastString(vals []any) string {
	for i := len(vals) - 1; i >= 0; i-- {
		if s, ok := vals[i].(string); ok {
			return s
		}
	}
	return ""
}
