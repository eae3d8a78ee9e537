package core

import "time"

// SessionDuration is how long a locally persisted session is trusted.
const SessionDuration = 30 * 24 * time.Hour

// SessionRecord is the client-side persisted assertion that an address was
// verified at Timestamp.
type SessionRecord struct {
	Address       string    `json:"address"`
	ChainID       string    `json:"chainId"`
	Authenticated bool      `json:"authenticated"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks the record against the connected address at now.
// A record is valid while now-Timestamp < maxAge; at exactly maxAge it has expired.
func (r SessionRecord) Validate(address string, now time.Time, maxAge time.Duration) error {
	if address == "" || r.Address != address {
		return NewError(KindSessionMismatch, "", nil)
	}
	if !r.Authenticated {
		return NewError(KindSessionMismatch, "record is not authenticated", nil)
	}
	if r.Timestamp.IsZero() || now.Sub(r.Timestamp) >= maxAge {
		return NewError(KindSessionExpired, "", nil)
	}
	return nil
}
