package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/registry"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/domain/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Deliver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should deliver only to the event's room", func(t *testing.T) {
		r := registry.NewRegistry()

		roomID, otherID := uuid.New(), uuid.New()
		event := domain.Event{Type: domain.EventChatMessage, RoomID: roomID, Revision: 1}

		alice := mocks.NewMockMessenger(t)
		alice.On("SendEvent", mock.Anything, event).Once().Return(nil)

		bob := mocks.NewMockMessenger(t)
		bob.On("SendEvent", mock.Anything, event).Once().Return(nil)

		carol := mocks.NewMockMessenger(t)

		r.Register(ctx, roomID, "alice", alice)
		r.Register(ctx, roomID, "bob", bob)
		r.Register(ctx, otherID, "carol", carol)

		require.NoError(t, r.Deliver(ctx, event))
	})

	t.Run("it should skip a failing connection without dropping the others", func(t *testing.T) {
		r := registry.NewRegistry()

		roomID := uuid.New()
		event := domain.Event{Type: domain.EventChatMessage, RoomID: roomID, Revision: 2}

		broken := mocks.NewMockMessenger(t)
		broken.On("SendEvent", mock.Anything, event).Once().Return(errors.New("gone"))

		healthy := mocks.NewMockMessenger(t)
		healthy.On("SendEvent", mock.Anything, event).Once().Return(nil)

		r.Register(ctx, roomID, "broken", broken)
		r.Register(ctx, roomID, "healthy", healthy)

		require.NoError(t, r.Deliver(ctx, event))
	})

	t.Run("it should not deliver to unregistered connections", func(t *testing.T) {
		r := registry.NewRegistry()

		roomID := uuid.New()

		m := mocks.NewMockMessenger(t)
		r.Register(ctx, roomID, "alice", m)
		r.Unregister(ctx, roomID, "alice", m)

		require.NoError(t, r.Deliver(ctx, domain.Event{Type: domain.EventChatMessage, RoomID: roomID, Revision: 3}))
	})

	t.Run("it should keep a superseding connection when the stale one unregisters", func(t *testing.T) {
		r := registry.NewRegistry()

		roomID := uuid.New()
		event := domain.Event{Type: domain.EventChatMessage, RoomID: roomID, Revision: 4}

		stale := mocks.NewMockMessenger(t)

		live := mocks.NewMockMessenger(t)
		live.On("SendEvent", mock.Anything, event).Once().Return(nil)

		r.Register(ctx, roomID, "alice", stale)
		r.Register(ctx, roomID, "alice", live)

		// the stale connection tears down after the reconnect
		r.Unregister(ctx, roomID, "alice", stale)

		require.NoError(t, r.Deliver(ctx, event))
	})
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should notify every connection", func(t *testing.T) {
		r := registry.NewRegistry()

		roomID := uuid.New()

		alice := mocks.NewMockMessenger(t)
		alice.On("SendServerClosing", mock.Anything).Once().Return(nil)

		bob := mocks.NewMockMessenger(t)
		bob.On("SendServerClosing", mock.Anything).Once().Return(nil)

		r.Register(ctx, roomID, "alice", alice)
		r.Register(ctx, roomID, "bob", bob)

		require.NoError(t, r.Close(ctx))

		// the registry is empty afterwards
		require.NoError(t, r.Deliver(ctx, domain.Event{RoomID: roomID}))
	})
}
