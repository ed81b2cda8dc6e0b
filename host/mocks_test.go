package host

import (
	"context"
	"livepaint/transport"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Room ---

type MockRoom struct {
	mock.Mock

	name         string
	metadata     string
	participants []transport.ParticipantInfo

	mu       sync.Mutex
	handlers []func(transport.Event)
	methods  map[string]transport.RPCHandler
}

func NewMockRoom(metadata string, participants ...transport.ParticipantInfo) *MockRoom {
	return &MockRoom{
		name:         "kitchen",
		metadata:     metadata,
		participants: participants,
		methods:      make(map[string]transport.RPCHandler),
	}
}

func (m *MockRoom) Name() string     { return m.name }
func (m *MockRoom) Identity() string { return "host" }
func (m *MockRoom) Metadata() string { return m.metadata }

func (m *MockRoom) Participants() []transport.ParticipantInfo {
	return m.participants
}

func (m *MockRoom) OnEvent(handler func(transport.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

func (m *MockRoom) RegisterRPCMethod(method string, handler transport.RPCHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[method] = handler
}

func (m *MockRoom) PublishData(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockRoom) PerformRPC(ctx context.Context, destination, method, payload string) (string, error) {
	args := m.Called(ctx, destination, method, payload)
	return args.String(0), args.Error(1)
}

func (m *MockRoom) emit(ev transport.Event) {
	m.mu.Lock()
	handlers := slices.Clone(m.handlers)
	m.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (m *MockRoom) call(method, caller, payload string) (string, error) {
	m.mu.Lock()
	handler := m.methods[method]
	m.mu.Unlock()
	return handler(context.Background(), transport.RPCInvocation{RequestID: "req", CallerIdentity: caller, Payload: payload})
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

// --- Guesser ---

type MockGuesser struct {
	mock.Mock
}

func (m *MockGuesser) Guess(ctx context.Context, png []byte) (string, error) {
	args := m.Called(ctx, png)
	return args.String(0), args.Error(1)
}

// --- Judge ---

type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) CheckWinners(ctx context.Context, prompt string, guesses map[string]string) ([]string, error) {
	args := m.Called(ctx, prompt, guesses)
	winners, _ := args.Get(0).([]string)
	return winners, args.Error(1)
}

// --- PeriodicTickerChannelCreator ---

type manualTicker struct {
	ticks chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ticks: make(chan time.Time)}
}

func (m *manualTicker) Create(time.Duration) (<-chan time.Time, func()) {
	return m.ticks, func() {}
}

// tick hands one tick to the running judge loop. Returning means the loop
// accepted it, which also means the previous tick has finished.
func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ticks <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("judge loop is not running")
	}
}

// expectNoLoop checks that nothing is consuming ticks.
func (m *manualTicker) expectNoLoop(t *testing.T) {
	t.Helper()
	select {
	case m.ticks <- time.Now():
		t.Fatal("judge loop is still running")
	case <-time.After(50 * time.Millisecond):
	}
}
