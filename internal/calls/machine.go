package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/messenger"
	"github.com/mossy-p/realtime-signaling/internal/metrics"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

const defaultHistoryLimit = 50

// Machine enforces the call lifecycle
//
//	initiated -> accepted -> ended
//	initiated -> rejected
//
// and signals each transition to the other party. Every transition is a
// conditional update on the expected prior state, so duplicate or late
// requests fail with ErrConflict instead of overwriting the record.
type Machine struct {
	store     Store
	users     UserDirectory
	messenger messenger.Sender
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMachine creates a call state machine
func NewMachine(store Store, users UserDirectory, sender messenger.Sender, logger zerolog.Logger) *Machine {
	return &Machine{
		store:     store,
		users:     users,
		messenger: sender,
		logger:    logger.With().Str("component", "calls").Logger(),
		now:       time.Now,
	}
}

// Initiate opens a call from callerID to recipientID. The record is created
// even when the recipient is offline; delivered reports whether the ring
// signal reached them.
func (m *Machine) Initiate(ctx context.Context, callerID, recipientID string) (*models.Call, bool, error) {
	if callerID == "" || recipientID == "" || callerID == recipientID {
		return nil, false, fmt.Errorf("caller and recipient must be two different users: %w", apperr.ErrInvalid)
	}

	caller, _, err := m.resolvePair(ctx, callerID, recipientID)
	if err != nil {
		return nil, false, err
	}

	active, err := m.store.FindActive(ctx, callerID, recipientID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, fmt.Errorf("store.FindActive: %w", err)
	}
	if active != nil {
		return nil, false, fmt.Errorf("call %s is already %s: %w", active.ID, active.Status, apperr.ErrConflict)
	}

	call := &models.Call{
		ID:          uuid.New().String(),
		CallerID:    callerID,
		RecipientID: recipientID,
		Status:      models.CallStatusInitiated,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.store.Create(ctx, call); err != nil {
		return nil, false, fmt.Errorf("store.Create: %w", err)
	}
	metrics.CallTransitions.WithLabelValues(string(models.CallStatusInitiated)).Inc()

	delivered := m.messenger.SendTo(recipientID, models.EventCallRequest, models.IncomingCallPayload{
		CallerID:       callerID,
		CallerName:     caller.Name,
		CallerUsername: caller.Username,
	})

	m.logger.Info().
		Str("call_id", call.ID).
		Str("caller_id", callerID).
		Str("recipient_id", recipientID).
		Bool("delivered", delivered).
		Msg("call initiated")

	return call, delivered, nil
}

// Accept is invoked by recipientID to answer the call from callerID
func (m *Machine) Accept(ctx context.Context, callerID, recipientID string) (*models.Call, bool, error) {
	return m.answer(ctx, callerID, recipientID, models.CallStatusAccepted, models.EventCallAccepted)
}

// Reject is invoked by recipientID to decline the call from callerID
func (m *Machine) Reject(ctx context.Context, callerID, recipientID string) (*models.Call, bool, error) {
	return m.answer(ctx, callerID, recipientID, models.CallStatusRejected, models.EventCallRejected)
}

func (m *Machine) answer(ctx context.Context, callerID, recipientID string, to models.CallStatus, eventType models.EventType) (*models.Call, bool, error) {
	_, recipient, err := m.resolvePair(ctx, callerID, recipientID)
	if err != nil {
		return nil, false, err
	}

	call, err := m.store.Transition(ctx, Transition{
		CallerID:    callerID,
		RecipientID: recipientID,
		Directed:    true,
		From:        models.CallStatusInitiated,
		To:          to,
		At:          m.now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("store.Transition: %w", err)
	}
	metrics.CallTransitions.WithLabelValues(string(to)).Inc()

	delivered := m.messenger.SendTo(callerID, eventType, models.CallAnsweredPayload{
		RecipientID:       recipientID,
		RecipientName:     recipient.Name,
		RecipientUsername: recipient.Username,
	})

	m.logger.Info().Str("call_id", call.ID).Str("status", string(to)).Bool("delivered", delivered).Msg("call answered")
	return call, delivered, nil
}

// End hangs up an accepted call; either party may call it
func (m *Machine) End(ctx context.Context, userID, peerID string) (*models.Call, bool, error) {
	user, _, err := m.resolvePair(ctx, userID, peerID)
	if err != nil {
		return nil, false, err
	}

	call, err := m.store.Transition(ctx, Transition{
		CallerID:    userID,
		RecipientID: peerID,
		From:        models.CallStatusAccepted,
		To:          models.CallStatusEnded,
		At:          m.now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("store.Transition: %w", err)
	}
	metrics.CallTransitions.WithLabelValues(string(models.CallStatusEnded)).Inc()

	delivered := m.messenger.SendTo(call.Peer(userID), models.EventCallEnded, models.CallEndedPayload{
		UserID:       userID,
		UserName:     user.Name,
		UserUsername: user.Username,
	})

	m.logger.Info().Str("call_id", call.ID).Str("ended_by", userID).Bool("delivered", delivered).Msg("call ended")
	return call, delivered, nil
}

// History returns the calls userID took part in, newest first
func (m *Machine) History(ctx context.Context, userID string, limit int) ([]*models.Call, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := m.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store.ListByUser: %w", err)
	}
	return history, nil
}

// ExpireStale rejects calls that have been ringing longer than timeout and
// tells the caller nobody answered. It returns how many calls expired.
func (m *Machine) ExpireStale(ctx context.Context, timeout time.Duration) (int, error) {
	now := m.now().UTC()
	stale, err := m.store.ListStale(ctx, models.CallStatusInitiated, now.Add(-timeout))
	if err != nil {
		return 0, fmt.Errorf("store.ListStale: %w", err)
	}

	expired := 0
	for _, c := range stale {
		_, err := m.store.Transition(ctx, Transition{
			CallerID:    c.CallerID,
			RecipientID: c.RecipientID,
			Directed:    true,
			From:        models.CallStatusInitiated,
			To:          models.CallStatusRejected,
			At:          now,
		})
		if errors.Is(err, apperr.ErrConflict) {
			// answered in the meantime
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("store.Transition: %w", err)
		}

		expired++
		metrics.CallTransitions.WithLabelValues(string(models.CallStatusRejected)).Inc()
		m.messenger.SendTo(c.CallerID, models.EventCallRejected, models.CallAnsweredPayload{
			RecipientID: c.RecipientID,
			Reason:      "timeout",
		})
		m.logger.Info().Str("call_id", c.ID).Msg("ringing call expired")
	}

	return expired, nil
}

func (m *Machine) resolvePair(ctx context.Context, a, b string) (*models.User, *models.User, error) {
	first, err := m.users.FindUser(ctx, a)
	if err != nil {
		return nil, nil, fmt.Errorf("users.FindUser: %w", err)
	}
	second, err := m.users.FindUser(ctx, b)
	if err != nil {
		return nil, nil, fmt.Errorf("users.FindUser: %w", err)
	}
	return first, second, nil
}
