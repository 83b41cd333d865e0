package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/calls"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

// callRecord is a row of the call history. ActivePair holds the normalized
// pair while the call is non-terminal and NULL afterwards; its unique index
// allows one live call per pair.
type callRecord struct {
	ID          string  `gorm:"primarykey;size:36"`
	CallerID    string  `gorm:"size:64;index;not null"`
	RecipientID string  `gorm:"size:64;index;not null"`
	Pair        string  `gorm:"size:130;index;not null"`
	ActivePair  *string `gorm:"size:130;uniqueIndex"`
	Status      string  `gorm:"size:16;index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time
}

// TableName returns the table name for callRecord
func (callRecord) TableName() string {
	return "calls"
}

func (r *callRecord) toModel() *models.Call {
	return &models.Call{
		ID:          r.ID,
		CallerID:    r.CallerID,
		RecipientID: r.RecipientID,
		Status:      models.CallStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// pairKey orders the two IDs so both orientations share a key
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// CallStore is the SQL-backed call history
type CallStore struct {
	db *gorm.DB
}

// NewCallStore creates a call store over db
func NewCallStore(db *gorm.DB) *CallStore {
	return &CallStore{db: db}
}

var _ calls.Store = (*CallStore)(nil)

// Create inserts a new call record
func (s *CallStore) Create(ctx context.Context, call *models.Call) error {
	pair := pairKey(call.CallerID, call.RecipientID)
	record := callRecord{
		ID:          call.ID,
		CallerID:    call.CallerID,
		RecipientID: call.RecipientID,
		Pair:        pair,
		Status:      string(call.Status),
		CreatedAt:   call.CreatedAt,
		UpdatedAt:   call.CreatedAt,
		StartedAt:   call.StartedAt,
		EndedAt:     call.EndedAt,
	}
	if !call.Status.Terminal() {
		record.ActivePair = &pair
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("call between %s and %s already active: %w", call.CallerID, call.RecipientID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create call: %w", err)
	}

	call.UpdatedAt = record.UpdatedAt
	return nil
}

// FindActive returns the live call for the unordered pair
func (s *CallStore) FindActive(ctx context.Context, a, b string) (*models.Call, error) {
	var record callRecord
	err := s.db.WithContext(ctx).
		Where("active_pair = ?", pairKey(a, b)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("active call between %s and %s: %w", a, b, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find call: %w", err)
	}
	return record.toModel(), nil
}

// Transition applies t to the latest record for the pair as a
// compare-and-set on its status.
func (s *CallStore) Transition(ctx context.Context, t calls.Transition) (*models.Call, error) {
	db := s.db.WithContext(ctx)

	query := db.Model(&callRecord{})
	if t.Directed {
		query = query.Where("caller_id = ? AND recipient_id = ?", t.CallerID, t.RecipientID)
	} else {
		query = query.Where("pair = ?", pairKey(t.CallerID, t.RecipientID))
	}

	var record callRecord
	if err := query.Order("created_at DESC").Order("id DESC").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("call between %s and %s: %w", t.CallerID, t.RecipientID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find call: %w", err)
	}

	if record.Status != string(t.From) {
		return nil, fmt.Errorf("call %s is %s, want %s: %w", record.ID, record.Status, t.From, apperr.ErrConflict)
	}

	at := t.At
	updates := map[string]any{
		"status":     string(t.To),
		"updated_at": at,
	}
	switch t.To {
	case models.CallStatusAccepted:
		updates["started_at"] = at
	case models.CallStatusRejected, models.CallStatusEnded:
		updates["ended_at"] = at
		updates["active_pair"] = nil
	}

	result := db.Model(&callRecord{}).
		Where("id = ? AND status = ?", record.ID, string(t.From)).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("call %s changed concurrently: %w", record.ID, apperr.ErrConflict)
	}

	if err := db.First(&record, "id = ?", record.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload call: %w", err)
	}
	return record.toModel(), nil
}

// ListByUser returns the calls a user took part in, newest first
func (s *CallStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Call, error) {
	var records []callRecord
	err := s.db.WithContext(ctx).
		Where("caller_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return toModels(records), nil
}

// ListStale returns records stuck in status since before cutoff
func (s *CallStore) ListStale(ctx context.Context, status models.CallStatus, cutoff time.Time) ([]*models.Call, error) {
	var records []callRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(status), cutoff).
		Order("updated_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale calls: %w", err)
	}
	return toModels(records), nil
}

func toModels(records []callRecord) []*models.Call {
	out := make([]*models.Call, 0, len(records))
	for i := range records {
		out = append(out, records[i].toModel())
	}
	return out
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
