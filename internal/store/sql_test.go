package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/calls"
	"github.com/mossy-p/realtime-signaling/internal/models"
	"github.com/mossy-p/realtime-signaling/internal/store"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := store.OpenSQL(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.CloseSQL(db) })
	return db
}

func TestUserStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := store.NewUserStore(newDB(t))

	alice := &models.User{Username: "alice", Name: "Alice"}
	require.NoError(t, users.CreateUser(ctx, alice))
	assert.NotEmpty(t, alice.ID)

	t.Run("it should find a user by ID and username", func(t *testing.T) {
		got, err := users.FindUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice, got)

		got, err = users.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("it should reject a duplicate username", func(t *testing.T) {
		err := users.CreateUser(ctx, &models.User{Username: "alice"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("it should report unknown users as not found", func(t *testing.T) {
		_, err := users.FindUser(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = users.FindByUsername(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func newCall(id, caller, recipient string, at time.Time) *models.Call {
	return &models.Call{
		ID:          id,
		CallerID:    caller,
		RecipientID: recipient,
		Status:      models.CallStatusInitiated,
		CreatedAt:   at,
	}
}

func TestCallStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should allow one live call per unordered pair", func(t *testing.T) {
		t.Parallel()

		s := store.NewCallStore(newDB(t))
		now := time.Now()
		require.NoError(t, s.Create(ctx, newCall("c1", "1", "2", now)))

		err := s.Create(ctx, newCall("c2", "2", "1", now))
		assert.ErrorIs(t, err, apperr.ErrConflict)

		active, err := s.FindActive(ctx, "2", "1")
		require.NoError(t, err)
		assert.Equal(t, "c1", active.ID)
	})

	t.Run("it should free the pair once the call is terminal", func(t *testing.T) {
		t.Parallel()

		s := store.NewCallStore(newDB(t))
		now := time.Now()
		require.NoError(t, s.Create(ctx, newCall("c1", "1", "2", now)))

		call, err := s.Transition(ctx, calls.Transition{
			CallerID: "1", RecipientID: "2", Directed: true,
			From: models.CallStatusInitiated, To: models.CallStatusRejected, At: now,
		})
		require.NoError(t, err)
		assert.Equal(t, models.CallStatusRejected, call.Status)
		assert.NotNil(t, call.EndedAt)

		_, err = s.FindActive(ctx, "1", "2")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, s.Create(ctx, newCall("c2", "2", "1", now.Add(time.Second))))
	})

	t.Run("it should only transition from the expected status", func(t *testing.T) {
		t.Parallel()

		s := store.NewCallStore(newDB(t))
		now := time.Now()
		require.NoError(t, s.Create(ctx, newCall("c1", "1", "2", now)))

		_, err := s.Transition(ctx, calls.Transition{
			CallerID: "1", RecipientID: "2",
			From: models.CallStatusAccepted, To: models.CallStatusEnded, At: now,
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		call, err := s.Transition(ctx, calls.Transition{
			CallerID: "1", RecipientID: "2", Directed: true,
			From: models.CallStatusInitiated, To: models.CallStatusAccepted, At: now,
		})
		require.NoError(t, err)
		assert.NotNil(t, call.StartedAt)

		// hang-up works from either side
		call, err = s.Transition(ctx, calls.Transition{
			CallerID: "2", RecipientID: "1",
			From: models.CallStatusAccepted, To: models.CallStatusEnded, At: now,
		})
		require.NoError(t, err)
		assert.Equal(t, models.CallStatusEnded, call.Status)
	})

	t.Run("it should require direction for answers", func(t *testing.T) {
		t.Parallel()

		s := store.NewCallStore(newDB(t))
		require.NoError(t, s.Create(ctx, newCall("c1", "1", "2", time.Now())))

		_, err := s.Transition(ctx, calls.Transition{
			CallerID: "2", RecipientID: "1", Directed: true,
			From: models.CallStatusInitiated, To: models.CallStatusAccepted, At: time.Now(),
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("it should list history and stale calls", func(t *testing.T) {
		t.Parallel()

		s := store.NewCallStore(newDB(t))
		now := time.Now()
		require.NoError(t, s.Create(ctx, newCall("old", "1", "2", now.Add(-time.Hour))))
		require.NoError(t, s.Create(ctx, newCall("new", "1", "3", now)))

		history, err := s.ListByUser(ctx, "1", 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "new", history[0].ID)

		history, err = s.ListByUser(ctx, "2", 10)
		require.NoError(t, err)
		require.Len(t, history, 1)

		stale, err := s.ListStale(ctx, models.CallStatusInitiated, now.Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, "old", stale[0].ID)
	})
}
