package session

import "errors"

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Repo stores sessions for their lifetime. There is no persistence beyond
// the process; a restart logs everyone out.
type Repo interface {
	Get(id string) (*Session, error)
	Upsert(sess *Session) error
	Delete(id string) error
}
