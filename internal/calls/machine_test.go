package calls_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/calls"
	"github.com/mossy-p/realtime-signaling/internal/messenger"
	"github.com/mossy-p/realtime-signaling/internal/models"
	"github.com/mossy-p/realtime-signaling/internal/registry"
	"github.com/mossy-p/realtime-signaling/internal/store"
	"github.com/mossy-p/realtime-signaling/internal/testutil"
)

type fixture struct {
	machine  *calls.Machine
	registry *registry.Registry
	store    *store.CallStore
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := store.OpenSQL(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.CloseSQL(db) })

	users := store.NewUserStore(db)
	for _, u := range []models.User{
		{ID: "1", Username: "alice", Name: "Alice"},
		{ID: "2", Username: "bob", Name: "Bob"},
		{ID: "3", Username: "carol", Name: "Carol"},
	} {
		require.NoError(t, users.CreateUser(context.Background(), &u))
	}

	reg := registry.New()
	callStore := store.NewCallStore(db)
	machine := calls.NewMachine(callStore, users, messenger.New(reg, zerolog.Nop()), zerolog.Nop())

	return &fixture{machine: machine, registry: reg, store: callStore}
}

func TestMachine_Initiate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setup(t)
	bob := testutil.NewConn("bob")
	f.registry.Register("2", bob)

	t.Run("it should create an initiated record and ring the recipient", func(t *testing.T) {
		call, delivered, err := f.machine.Initiate(ctx, "1", "2")
		require.NoError(t, err)
		assert.True(t, delivered)
		assert.Equal(t, models.CallStatusInitiated, call.Status)
		assert.Nil(t, call.StartedAt)

		events := bob.OfType(models.EventCallRequest)
		require.Len(t, events, 1)
		assert.Equal(t, models.IncomingCallPayload{CallerID: "1", CallerName: "Alice", CallerUsername: "alice"}, events[0].Payload)
	})

	t.Run("it should reject a second initiation for the same pair", func(t *testing.T) {
		_, _, err := f.machine.Initiate(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)

		active, err := f.store.FindActive(ctx, "1", "2")
		require.NoError(t, err)
		assert.Equal(t, models.CallStatusInitiated, active.Status)
	})

	t.Run("it should treat the pair as unordered", func(t *testing.T) {
		_, _, err := f.machine.Initiate(ctx, "2", "1")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("it should create the record when the recipient is offline", func(t *testing.T) {
		call, delivered, err := f.machine.Initiate(ctx, "1", "3")
		require.NoError(t, err)
		assert.False(t, delivered)
		assert.Equal(t, models.CallStatusInitiated, call.Status)
	})

	t.Run("it should fail for an unknown user", func(t *testing.T) {
		_, _, err := f.machine.Initiate(ctx, "1", "404")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("it should refuse calling oneself", func(t *testing.T) {
		_, _, err := f.machine.Initiate(ctx, "1", "1")
		require.ErrorIs(t, err, apperr.ErrInvalid)
	})
}

func TestMachine_Accept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setup(t)
	alice := testutil.NewConn("alice")
	f.registry.Register("1", alice)

	t.Run("it should fail when no call exists", func(t *testing.T) {
		_, _, err := f.machine.Accept(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	_, _, err := f.machine.Initiate(ctx, "1", "2")
	require.NoError(t, err)

	t.Run("it should fail when the orientation is reversed", func(t *testing.T) {
		_, _, err := f.machine.Accept(ctx, "2", "1")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("it should accept the call and notify the caller", func(t *testing.T) {
		call, delivered, err := f.machine.Accept(ctx, "1", "2")
		require.NoError(t, err)
		assert.True(t, delivered)
		assert.Equal(t, models.CallStatusAccepted, call.Status)
		require.NotNil(t, call.StartedAt)

		events := alice.OfType(models.EventCallAccepted)
		require.Len(t, events, 1)
		assert.Equal(t, "2", events[0].Payload.(models.CallAnsweredPayload).RecipientID)
	})

	t.Run("it should reject a duplicate accept", func(t *testing.T) {
		_, _, err := f.machine.Accept(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("it should not reject an accepted call", func(t *testing.T) {
		_, _, err := f.machine.Reject(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestMachine_Reject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setup(t)
	alice := testutil.NewConn("alice")
	f.registry.Register("1", alice)

	_, _, err := f.machine.Initiate(ctx, "1", "2")
	require.NoError(t, err)

	call, delivered, err := f.machine.Reject(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, models.CallStatusRejected, call.Status)
	assert.NotNil(t, call.EndedAt)
	assert.Len(t, alice.OfType(models.EventCallRejected), 1)

	t.Run("it should keep rejected as terminal", func(t *testing.T) {
		_, _, err := f.machine.Accept(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("it should allow a new call once the previous one is terminal", func(t *testing.T) {
		call, _, err := f.machine.Initiate(ctx, "2", "1")
		require.NoError(t, err)
		assert.Equal(t, models.CallStatusInitiated, call.Status)
	})
}

func TestMachine_End(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setup(t)
	alice := testutil.NewConn("alice")
	f.registry.Register("1", alice)

	_, _, err := f.machine.Initiate(ctx, "1", "2")
	require.NoError(t, err)

	t.Run("it should not end a call that was never accepted", func(t *testing.T) {
		_, _, err := f.machine.End(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	_, _, err = f.machine.Accept(ctx, "1", "2")
	require.NoError(t, err)

	t.Run("it should let the recipient end the call and notify the caller", func(t *testing.T) {
		call, delivered, err := f.machine.End(ctx, "2", "1")
		require.NoError(t, err)
		assert.True(t, delivered)
		assert.Equal(t, models.CallStatusEnded, call.Status)
		require.NotNil(t, call.EndedAt)
		require.NotNil(t, call.StartedAt)

		events := alice.OfType(models.EventCallEnded)
		require.Len(t, events, 1)
		assert.Equal(t, "2", events[0].Payload.(models.CallEndedPayload).UserID)
	})

	t.Run("it should fail a second end", func(t *testing.T) {
		_, _, err := f.machine.End(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("it should list the history for both parties", func(t *testing.T) {
		history, err := f.machine.History(ctx, "2", 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.CallStatusEnded, history[0].Status)
	})
}

func TestMachine_ExpireStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setup(t)
	alice := testutil.NewConn("alice")
	f.registry.Register("1", alice)

	_, _, err := f.machine.Initiate(ctx, "1", "2")
	require.NoError(t, err)

	t.Run("it should leave fresh calls ringing", func(t *testing.T) {
		n, err := f.machine.ExpireStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("it should reject calls ringing past the timeout", func(t *testing.T) {
		time.Sleep(5 * time.Millisecond)

		n, err := f.machine.ExpireStale(ctx, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		events := alice.OfType(models.EventCallRejected)
		require.Len(t, events, 1)
		assert.Equal(t, "timeout", events[0].Payload.(models.CallAnsweredPayload).Reason)

		_, err = f.store.FindActive(ctx, "1", "2")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	f := setup(t)

	t.Run("it should survive a timeout too short to halve", func(t *testing.T) {
		sweeper := calls.NewSweeper(f.machine, time.Nanosecond, 0, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NotPanics(t, func() {
			require.NoError(t, sweeper.Run(ctx))
		})
	})

	t.Run("it should expire ringing calls on each tick", func(t *testing.T) {
		caller := testutil.NewConn("caller")
		f.registry.Register("1", caller)

		_, _, err := f.machine.Initiate(context.Background(), "1", "3")
		require.NoError(t, err)

		sweeper := calls.NewSweeper(f.machine, time.Millisecond, 5*time.Millisecond, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- sweeper.Run(ctx) }()

		assert.Eventually(t, func() bool {
			return len(caller.OfType(models.EventCallRejected)) == 1
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
}
