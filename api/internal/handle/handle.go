package handle

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wasteboz/api/internal/session"
)

const (
	// SessionHeader carries the session id in both directions.
	SessionHeader = "X-Session-ID"
	// AppliedHeader is "false" when a later request on the same session
	// superseded this one; the body is then the session as it stands.
	AppliedHeader = "X-Search-Applied"

	maxBodyBytes  = 12 << 20
	maxImageBytes = 10 << 20
)

type Handle struct {
	sessions *session.Manager
	log      *logrus.Entry
}

func New(sessions *session.Manager, log *logrus.Entry) *Handle {
	if log == nil {
		log = logrus.WithField("component", "http")
	}
	return &Handle{sessions: sessions, log: log}
}

// sessionKey returns the caller's session id, issuing a new one when the
// request carries none.
func sessionKey(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeState(w http.ResponseWriter, s session.State, applied bool) {
	if !applied {
		w.Header().Set(AppliedHeader, "false")
	}
	writeJSON(w, http.StatusOK, s)
}
