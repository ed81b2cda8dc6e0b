package host

import (
	"context"
	"encoding/base64"
	"fmt"
	"livepaint/domain"
	"livepaint/drawing"
	"livepaint/game"
	"livepaint/transport"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	host    *Host
	room    *MockRoom
	admin   *MockRoomAdmin
	guesser *MockGuesser
	judge   *MockJudge
	ticker  *manualTicker
}

func testOptions(ticker *manualTicker) Options {
	opts := DefaultOptions()
	opts.Tickers = ticker
	opts.KickGrace = time.Millisecond
	opts.KickNotifyTimeout = 50 * time.Millisecond
	opts.RPCTimeout = time.Second
	opts.RenderSize = 64
	opts.StrokeWidth = 2
	opts.Intn = func(int) int { return 0 }
	return opts
}

// setup connects a host. prepare runs before Connect so its expectations take
// precedence over the permissive defaults.
func setup(t *testing.T, metadata string, prepare func(f *fixture), participants ...transport.ParticipantInfo) *fixture {
	t.Helper()

	f := &fixture{
		room:    NewMockRoom(metadata, participants...),
		admin:   new(MockRoomAdmin),
		guesser: new(MockGuesser),
		judge:   new(MockJudge),
		ticker:  newManualTicker(),
	}
	if prepare != nil {
		prepare(f)
	}
	f.room.On("PerformRPC", mock.Anything, mock.Anything, MethodGetDrawing, "{}").Return("", nil).Maybe()
	f.room.On("PublishData", mock.Anything, TopicGuess, mock.Anything).Return(nil).Maybe()
	f.admin.On("UpdateRoomMetadata", mock.Anything, "kitchen", mock.Anything).Return(nil).Maybe()
	f.admin.On("RemoveParticipant", mock.Anything, "kitchen", mock.Anything).Return(nil).Maybe()

	h, err := New(f.room, f.admin, f.guesser, f.judge, testOptions(f.ticker))
	require.NoError(t, err)
	require.NoError(t, h.Connect(context.Background()))
	t.Cleanup(h.Close)
	f.host = h
	return f
}

func player(identity string) transport.ParticipantInfo {
	return transport.ParticipantInfo{Identity: identity, Kind: transport.KindStandard}
}

func joined(identity string) transport.Event {
	return transport.Event{Kind: transport.EventParticipantJoined, Participant: player(identity)}
}

func left(identity string) transport.Event {
	return transport.Event{Kind: transport.EventParticipantLeft, Participant: player(identity)}
}

func drawLine(identity string, l drawing.Line) transport.Event {
	rec := drawing.Encode(l)
	return transport.Event{
		Kind:        transport.EventDataReceived,
		Participant: player(identity),
		Topic:       TopicDrawLine,
		Payload:     rec[:],
	}
}

func clearDrawing(identity string) transport.Event {
	return transport.Event{Kind: transport.EventDataReceived, Participant: player(identity), Topic: TopicClearDrawing}
}

func line(x1, y1, x2, y2 float64) drawing.Line {
	return drawing.Line{From: drawing.Point{X: x1, Y: y1}, To: drawing.Point{X: x2, Y: y2}}
}

// catShape is three strokes, enough to count as a drawing.
var catShape = []drawing.Line{
	line(0.2, 0.2, 0.3, 0.1),
	line(0.3, 0.1, 0.4, 0.2),
	line(0.2, 0.2, 0.4, 0.2),
}

func (f *fixture) lineCount(identity string) int {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	d, ok := f.host.session.players[identity]
	if !ok {
		return -1
	}
	return d.LineCount()
}

func stateJSON(t *testing.T, s game.State) string {
	t.Helper()
	data, err := s.Marshal()
	require.NoError(t, err)
	return data
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("fresh room", func(t *testing.T) {
		t.Parallel()

		f := setup(t, "", nil, player("alice"), transport.ParticipantInfo{Identity: "host", Kind: transport.KindAgent})

		assert.Equal(t, []string{"alice"}, f.host.Players())
		if diff := cmp.Diff(game.NewState(), f.host.State()); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
		f.admin.AssertCalled(t, "UpdateRoomMetadata", mock.Anything, "kitchen", stateJSON(t, game.NewState()))
		f.ticker.expectNoLoop(t)
	})

	t.Run("restores a running round and existing drawings", func(t *testing.T) {
		t.Parallel()

		metadata := `{"started":true,"difficulty":"hard","prompt":"cat","winners":[]}`
		encoded := base64.StdEncoding.EncodeToString(drawing.EncodeAll(catShape))

		f := setup(t, metadata, func(f *fixture) {
			f.room.On("PerformRPC", mock.Anything, "alice", MethodGetDrawing, "{}").Return(encoded, nil)
			f.room.On("PerformRPC", mock.Anything, "bob", MethodGetDrawing, "{}").Return("not base64!", nil)
		}, player("alice"), player("bob"))

		f.host.tasks.Wait()
		assert.Equal(t, []string{"alice", "bob"}, f.host.Players())
		assert.Equal(t, len(catShape), f.lineCount("alice"))
		assert.Equal(t, 0, f.lineCount("bob"))

		state := f.host.State()
		assert.True(t, state.Started)
		assert.Equal(t, game.DifficultyHard, state.Difficulty)
		require.NotNil(t, state.Prompt)
		assert.Equal(t, "cat", *state.Prompt)
		f.admin.AssertCalled(t, "UpdateRoomMetadata", mock.Anything, "kitchen", stateJSON(t, state))

		// the judge loop came back with the round
		f.guesser.On("Guess", mock.Anything, mock.Anything).Return("dog", nil).Once()
		f.judge.On("CheckWinners", mock.Anything, "cat", map[string]string{"alice": "dog"}).Return([]string{}, nil).Once()
		f.ticker.tick(t)
		f.ticker.tick(t)
		f.guesser.AssertExpectations(t)
		f.judge.AssertExpectations(t)
	})

	t.Run("unreadable metadata is ignored", func(t *testing.T) {
		t.Parallel()

		f := setup(t, `{"started":true}`, nil)
		assert.False(t, f.host.State().Started)
		f.ticker.expectNoLoop(t)
	})

	t.Run("inconsistent metadata is ignored", func(t *testing.T) {
		t.Parallel()

		f := setup(t, `{"started":true,"difficulty":"easy","prompt":"cat","winners":["alice"]}`, nil)
		if diff := cmp.Diff(game.NewState(), f.host.State()); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
		f.ticker.expectNoLoop(t)
	})
}

func TestRegistration(t *testing.T) {
	t.Parallel()

	t.Run("idempotent and ignores agents", func(t *testing.T) {
		t.Parallel()

		f := setup(t, "", nil)
		f.room.emit(joined("alice"))
		f.room.emit(drawLine("alice", catShape[0]))
		f.room.emit(joined("alice"))
		f.room.emit(transport.Event{
			Kind:        transport.EventParticipantJoined,
			Participant: transport.ParticipantInfo{Identity: "other-agent", Kind: transport.KindAgent},
		})
		f.host.tasks.Wait()

		assert.Equal(t, []string{"alice"}, f.host.Players())
		assert.Equal(t, 1, f.lineCount("alice"))
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		t.Parallel()

		f := setup(t, "", nil, player("alice"))
		f.room.emit(left("alice"))
		f.room.emit(left("alice"))
		assert.Empty(t, f.host.Players())
	})

	t.Run("participant gone before drawing transfer", func(t *testing.T) {
		t.Parallel()

		f := setup(t, "", func(f *fixture) {
			f.room.On("PerformRPC", mock.Anything, "ghost", MethodGetDrawing, "{}").
				Return("", fmt.Errorf("%w: ghost", domain.ErrParticipantNotFound))
		})
		f.room.emit(joined("ghost"))
		f.host.tasks.Wait()
		assert.Empty(t, f.host.Players())
	})
}

func TestParticipantLimit(t *testing.T) {
	t.Parallel()

	f := setup(t, "", func(f *fixture) {
		f.room.On("PerformRPC", mock.Anything, "p13", MethodKick, `{"reason":"The room is full!"}`).Return("", nil).Once()
	})

	for i := 1; i <= 13; i++ {
		f.room.emit(joined(fmt.Sprintf("p%d", i)))
	}
	f.host.tasks.Wait()

	assert.Len(t, f.host.Players(), 12)
	assert.NotContains(t, f.host.Players(), "p13")
	f.room.AssertCalled(t, "PerformRPC", mock.Anything, "p13", MethodKick, `{"reason":"The room is full!"}`)
	f.admin.AssertCalled(t, "RemoveParticipant", mock.Anything, "kitchen", "p13")
	f.admin.AssertNumberOfCalls(t, "RemoveParticipant", 1)
}

func TestKick(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		notify func(call *mock.Call)
	}{
		{
			name:   "notice delivered",
			notify: func(call *mock.Call) { call.Return("", nil) },
		},
		{
			name:   "notice fails",
			notify: func(call *mock.Call) { call.Return("", transport.ErrParticipantLeft) },
		},
		{
			name: "notice times out",
			notify: func(call *mock.Call) {
				call.Run(func(args mock.Arguments) {
					<-args.Get(0).(context.Context).Done()
				}).Return("", context.DeadlineExceeded)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := setup(t, "", func(f *fixture) {
				tc.notify(f.room.On("PerformRPC", mock.Anything, "bob", MethodKick, `{"reason":"room full"}`))
			}, player("alice"), player("bob"))

			f.host.Kick("bob", "room full")
			assert.Equal(t, []string{"alice"}, f.host.Players())

			f.host.tasks.Wait()
			f.admin.AssertCalled(t, "RemoveParticipant", mock.Anything, "kitchen", "bob")
			assert.Equal(t, []string{"alice"}, f.host.Players())
		})
	}
}

func TestKickRemovesEvenWhenClosing(t *testing.T) {
	t.Parallel()

	f := setup(t, "", func(f *fixture) {
		f.room.On("PerformRPC", mock.Anything, "bob", MethodKick, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return("", context.Canceled)
	}, player("bob"))

	f.host.Kick("bob", "bye")
	f.host.Close()

	f.admin.AssertCalled(t, "RemoveParticipant", mock.Anything, "kitchen", "bob")
}

func TestDrawingEvents(t *testing.T) {
	t.Parallel()

	f := setup(t, "", nil, player("alice"))

	f.room.emit(drawLine("alice", catShape[0]))
	f.room.emit(drawLine("alice", catShape[1]))
	f.room.emit(drawLine("alice", catShape[1]))
	assert.Equal(t, 2, f.lineCount("alice"))

	f.room.emit(transport.Event{
		Kind:        transport.EventDataReceived,
		Participant: player("alice"),
		Topic:       TopicDrawLine,
		Payload:     []byte{1, 2, 3},
	})
	assert.Equal(t, 2, f.lineCount("alice"))

	f.room.emit(drawLine("mallory", catShape[0]))
	assert.Equal(t, -1, f.lineCount("mallory"))

	f.room.emit(transport.Event{Kind: transport.EventDataReceived, Participant: player("alice"), Topic: "something.else"})
	assert.Equal(t, 2, f.lineCount("alice"))

	f.room.emit(clearDrawing("alice"))
	assert.Equal(t, 0, f.lineCount("alice"))

	f.room.emit(clearDrawing("mallory"))
	assert.Equal(t, -1, f.lineCount("mallory"))
}

func TestControlRPCs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		running  bool
		method   string
		payload  string
		expected string
		started  bool
	}{
		{name: "start with prompt", method: MethodStartGame, payload: `{"prompt":"cat"}`, expected: `{"started":true}`, started: true},
		{name: "start with picked prompt", method: MethodStartGame, payload: `{}`, expected: `{"started":true}`, started: true},
		{name: "start with empty payload", method: MethodStartGame, payload: ``, expected: `{"started":true}`, started: true},
		{name: "start while running", running: true, method: MethodStartGame, payload: `{"prompt":"dog"}`, expected: `{"started":false}`, started: true},
		{name: "start with garbage", method: MethodStartGame, payload: `{prompt`, expected: `{"started":false}`},
		{name: "start with numeric prompt", method: MethodStartGame, payload: `{"prompt":7}`, expected: `{"started":false}`},
		{name: "end while running", running: true, method: MethodEndGame, payload: `{}`, expected: `{"stopped":true}`},
		{name: "end while idle", method: MethodEndGame, payload: `{}`, expected: `{"stopped":false}`},
		{name: "difficulty", method: MethodUpdateDifficulty, payload: `{"difficulty":"medium"}`, expected: `{"updated":true}`},
		{name: "unknown difficulty", method: MethodUpdateDifficulty, payload: `{"difficulty":"insane"}`, expected: `{"updated":false}`},
		{name: "difficulty while running", running: true, method: MethodUpdateDifficulty, payload: `{"difficulty":"hard"}`, expected: `{"updated":false}`, started: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := setup(t, "", nil)
			if tc.running {
				require.NoError(t, f.host.StartGame(context.Background(), "cat"))
			}

			got, err := f.room.call(tc.method, "alice", tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.started, f.host.State().Started)
		})
	}
}

func TestStartGame(t *testing.T) {
	t.Parallel()

	f := setup(t, "", nil, player("alice"))
	f.room.emit(drawLine("alice", catShape[0]))
	require.NoError(t, f.host.UpdateDifficulty(context.Background(), "medium"))

	require.NoError(t, f.host.StartGame(context.Background(), ""))
	assert.Equal(t, 0, f.lineCount("alice"))

	state := f.host.State()
	require.NotNil(t, state.Prompt)
	assert.Equal(t, game.Prompts[game.DifficultyMedium][0], *state.Prompt)
	f.admin.AssertCalled(t, "UpdateRoomMetadata", mock.Anything, "kitchen", stateJSON(t, state))

	require.NoError(t, f.host.EndGame(context.Background()))
	f.host.loops.Wait()
	f.ticker.expectNoLoop(t)
	f.admin.AssertCalled(t, "UpdateRoomMetadata", mock.Anything, "kitchen", stateJSON(t, f.host.State()))
}

func TestPublishFailureKeepsTransition(t *testing.T) {
	t.Parallel()

	f := setup(t, "", func(f *fixture) {
		f.admin.On("UpdateRoomMetadata", mock.Anything, "kitchen", mock.Anything).Return(nil).Once()
		f.admin.On("UpdateRoomMetadata", mock.Anything, "kitchen", mock.Anything).Return(domain.UnexpectedDatabaseError).Once()
	})

	got, err := f.room.call(MethodStartGame, "alice", `{"prompt":"cat"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"started":true}`, got)
	assert.True(t, f.host.State().Started)
}

func TestConnectSurvivesPublishFailure(t *testing.T) {
	t.Parallel()

	f := setup(t, "", func(f *fixture) {
		f.admin.On("UpdateRoomMetadata", mock.Anything, "kitchen", mock.Anything).Return(domain.UnexpectedDatabaseError).Once()
	}, player("alice"))

	assert.Equal(t, []string{"alice"}, f.host.Players())

	got, err := f.room.call(MethodStartGame, "alice", `{"prompt":"cat"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"started":true}`, got)
	f.admin.AssertCalled(t, "UpdateRoomMetadata", mock.Anything, "kitchen", stateJSON(t, f.host.State()))
}

func TestConnectAfterClose(t *testing.T) {
	t.Parallel()

	f := setup(t, "", nil)
	f.host.Close()
	assert.ErrorIs(t, f.host.Connect(context.Background()), ErrHostClosed)
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := setup(t, "", nil, player("alice"))
	require.NoError(t, f.host.StartGame(context.Background(), "cat"))

	f.host.Close()
	f.host.Close()

	f.ticker.expectNoLoop(t)
	assert.ErrorIs(t, f.host.StartGame(context.Background(), "dog"), ErrHostClosed)

	f.room.emit(joined("bob"))
	assert.Equal(t, []string{"alice"}, f.host.Players())
}

func TestNewRejectsBadOptions(t *testing.T) {
	t.Parallel()

	room := NewMockRoom("")
	opts := testOptions(newManualTicker())
	opts.ParticipantLimit = 0
	_, err := New(room, new(MockRoomAdmin), new(MockGuesser), new(MockJudge), opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = testOptions(newManualTicker())
	opts.GuessCacheSize = 0
	_, err = New(room, new(MockRoomAdmin), new(MockGuesser), new(MockJudge), opts)
	assert.ErrorIs(t, err, game.ErrInvalidCapacity)
}
