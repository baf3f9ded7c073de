// Package sessions decides whether an inbound beacon starts a new browser
// session and keeps the per-session page counts current.
package sessions

import (
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"pagebeam/internal/storage"
)

// NewSessionToken is the sentinel a first-visit client sends in place of a
// stored session id.
const NewSessionToken = "new"

// Manager resolves beacon session tokens against the session table. All
// writes go through the degraded-mode guard, so tracking never fails a
// request.
type Manager struct {
	guard  *storage.Guard
	logger *slog.Logger
}

// NewManager creates a session manager over the guarded store.
func NewManager(guard *storage.Guard, logger *slog.Logger) *Manager {
	return &Manager{guard: guard, logger: logger}
}

// IsNewSession reports whether the inbound token requires minting a session.
func IsNewSession(token string) bool {
	token = strings.TrimSpace(token)
	return token == "" || token == NewSessionToken
}

// MintID returns a fresh session identifier: a ULID, whose crypto-random
// entropy plus millisecond time component keeps concurrent visitors from
// colliding.
func MintID() string {
	return ulid.Make().String()
}

// Track resolves the inbound token to an effective session id and records the
// visit: new tokens create a session row with a page count of one, known
// tokens bump the existing row. The returned id must be echoed back to the
// client for reuse on its next beacon.
func (m *Manager) Track(token, ipAddress, userAgent string) (id string, isNew bool) {
	if IsNewSession(token) {
		id = MintID()
		m.logger.Debug("Minted new session", slog.String("session_id", id))
		storage.Do(m.guard, func(s storage.Store) error {
			return s.UpsertSession(id, 1, ipAddress, userAgent)
		})
		return id, true
	}

	id = strings.TrimSpace(token)
	storage.Do(m.guard, func(s storage.Store) error {
		return s.TouchSession(id)
	})
	return id, false
}
