package transport

import (
	"context"
	"io"
	"livepaint/crypto"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Connection ---

type fakeConnection struct {
	incoming chan []byte
	written  chan []byte
	closed   chan struct{}
	once     sync.Once

	mu     sync.Mutex
	reason string
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		incoming: make(chan []byte, 64),
		written:  make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConnection) Read() ([]byte, error) {
	select {
	case data := <-c.incoming:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConnection) Write(data []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	case c.written <- data:
		return nil
	}
}

func (c *fakeConnection) Ping() error {
	return nil
}

func (c *fakeConnection) Close(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *fakeConnection) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// --- MetadataStore ---

type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) SaveRoomMetadata(ctx context.Context, room string, metadata string) error {
	args := m.Called(ctx, room, metadata)
	return args.Error(0)
}

func (m *MockMetadataStore) GetRoomMetadata(ctx context.Context, room string) (string, error) {
	args := m.Called(ctx, room)
	return args.String(0), args.Error(1)
}

// --- TokenManager ---

type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) Generate(grant crypto.Grant, now time.Time) (string, error) {
	args := m.Called(grant, now)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) Verify(token string) (crypto.Grant, error) {
	args := m.Called(token)
	return args.Get(0).(crypto.Grant), args.Error(1)
}

// --- AdminAuthorizer ---

type MockAdminAuthorizer struct {
	mock.Mock
}

func (m *MockAdminAuthorizer) Authorize(secret string) error {
	args := m.Called(secret)
	return args.Error(0)
}

// --- RoomJoiner ---

type MockRoomJoiner struct {
	mock.Mock
}

func (m *MockRoomJoiner) Join(ctx context.Context, room, identity string, socket Connection) error {
	args := m.Called(ctx, room, identity, socket)
	return args.Error(0)
}

func (m *MockRoomJoiner) AgentIdentity() string {
	args := m.Called()
	return args.String(0)
}

// --- RoomAdmin ---

type MockRoomAdmin struct {
	mock.Mock
}

func (m *MockRoomAdmin) UpdateRoomMetadata(ctx context.Context, room, metadata string) error {
	args := m.Called(ctx, room, metadata)
	return args.Error(0)
}

func (m *MockRoomAdmin) RemoveParticipant(ctx context.Context, room, identity string) error {
	args := m.Called(ctx, room, identity)
	return args.Error(0)
}
