// Package sendhistory records outbound sends per contact so frequency caps can be
// enforced across journey runs.
package sendhistory

import (
	"context"
	"errors"
	"time"
)

// Retention is how long sends are kept. It covers the longest cap window.
const Retention = 35 * 24 * time.Hour

var ErrInvalidKey = errors.New("organization and contact IDs are required")

// History is the send ledger used by the real execution path.
type History interface {
	// Record stores one send at the given time.
	Record(ctx context.Context, organizationID, contactID string, at time.Time) error
	// Count returns the number of sends with from < at <= to.
	Count(ctx context.Context, organizationID, contactID string, from, to time.Time) (int, error)
	Close() error
}

func validateKey(organizationID, contactID string) error {
	if organizationID == "" || contactID == "" {
		return ErrInvalidKey
	}

	return nil
}
