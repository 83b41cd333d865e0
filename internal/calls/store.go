package calls

import (
	"context"
	"time"

	"github.com/mossy-p/realtime-signaling/internal/models"
)

// Transition is a conditional state change of the latest call record
// between two users. The update applies only while the record is in From.
type Transition struct {
	CallerID    string
	RecipientID string
	// Directed matches CallerID/RecipientID exactly; otherwise either orientation matches
	Directed bool
	From     models.CallStatus
	To       models.CallStatus
	At       time.Time
}

// Store persists call records. Implementations enforce at most one
// non-terminal record per unordered pair and report ErrConflict on violation.
type Store interface {
	Create(ctx context.Context, call *models.Call) error
	// FindActive returns the non-terminal record for the unordered pair
	FindActive(ctx context.Context, a, b string) (*models.Call, error)
	// Transition returns ErrNotFound when no record exists for the pair and
	// ErrConflict when the latest record is not in t.From
	Transition(ctx context.Context, t Transition) (*models.Call, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Call, error)
	// ListStale returns records in status last updated before cutoff
	ListStale(ctx context.Context, status models.CallStatus, cutoff time.Time) ([]*models.Call, error)
}

// UserDirectory resolves user identities
type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}
