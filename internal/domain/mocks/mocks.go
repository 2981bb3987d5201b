package mocks

import (
	"context"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

type MockBroadcaster struct {
	mock.Mock
}

func NewMockBroadcaster(t testingT) *MockBroadcaster {
	m := &MockBroadcaster{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockArchiver struct {
	mock.Mock
}

func NewMockArchiver(t testingT) *MockArchiver {
	m := &MockArchiver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockArchiver) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockArchiver) SavePlaylist(ctx context.Context, playlist domain.Playlist) error {
	args := m.Called(ctx, playlist)
	return args.Error(0)
}

func (m *MockArchiver) LoadPlaylist(ctx context.Context, id uuid.UUID) (domain.Playlist, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Playlist), args.Error(1)
}

type MockMessenger struct {
	mock.Mock
}

func NewMockMessenger(t testingT) *MockMessenger {
	m := &MockMessenger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockMessenger) SendEvent(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockMessenger) SendSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockMessenger) SendError(ctx context.Context, code string, message string) error {
	args := m.Called(ctx, code, message)
	return args.Error(0)
}

func (m *MockMessenger) SendServerClosing(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
