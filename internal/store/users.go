package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

// userRecord is a row of the user directory
type userRecord struct {
	ID        string    `gorm:"primarykey;size:64"`
	Username  string    `gorm:"size:64;uniqueIndex;not null"`
	Name      string    `gorm:"size:100"`
	CreatedAt time.Time
}

// TableName returns the table name for userRecord
func (userRecord) TableName() string {
	return "users"
}

func (r *userRecord) toModel() *models.User {
	return &models.User{ID: r.ID, Username: r.Username, Name: r.Name}
}

// UserStore is the SQL-backed user directory
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user directory over db
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindUser returns the user with the given ID
func (s *UserStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var record userRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return record.toModel(), nil
}

// FindByUsername returns the user with the given username
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var record userRecord
	if err := s.db.WithContext(ctx).First(&record, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return record.toModel(), nil
}

// CreateUser adds a user; an empty ID is generated
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	record := userRecord{ID: user.ID, Username: user.Username, Name: user.Name}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q already exists: %w", user.Username, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
