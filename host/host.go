package host

import (
	"context"
	"fmt"
	"livepaint/drawing"
	"livepaint/game"
	"livepaint/logger"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	ParticipantLimit  int
	GuessCacheSize    int
	JudgeInterval     time.Duration
	KickGrace         time.Duration
	KickNotifyTimeout time.Duration
	RPCTimeout        time.Duration
	RenderSize        int
	StrokeWidth       int
	Tickers           PeriodicTickerChannelCreator
	// Intn picks prompts; nil uses math/rand.
	Intn func(n int) int
}

func DefaultOptions() Options {
	return Options{
		ParticipantLimit:  12,
		GuessCacheSize:    game.DefaultGuessCacheSize,
		JudgeInterval:     time.Second,
		KickGrace:         100 * time.Millisecond,
		KickNotifyTimeout: 2 * time.Second,
		RPCTimeout:        10 * time.Second,
		RenderSize:        drawing.DefaultRenderSize,
		StrokeWidth:       drawing.DefaultStrokeWidth,
		Tickers:           NewTickerGen(),
	}
}

func (o Options) validate() error {
	switch {
	case o.ParticipantLimit < 1:
		return fmt.Errorf("%w: participant limit %d", ErrInvalidOptions, o.ParticipantLimit)
	case o.JudgeInterval <= 0:
		return fmt.Errorf("%w: judge interval %s", ErrInvalidOptions, o.JudgeInterval)
	case o.RenderSize < 1 || o.StrokeWidth < 1:
		return fmt.Errorf("%w: render %dpx stroke %d", ErrInvalidOptions, o.RenderSize, o.StrokeWidth)
	case o.Tickers == nil:
		return fmt.Errorf("%w: no ticker creator", ErrInvalidOptions)
	}
	return nil
}

// Session is everything one room's game owns. It is only touched with
// Host.mu held.
type Session struct {
	players     map[string]*drawing.Drawing
	cache       *game.GuessCache
	state       game.State
	lastGuesses map[string]string
	prompts     *game.PromptPicker
	// bumped on every start, stop and resolve
	round uint64
}

func newSession(opts Options) (Session, error) {
	cache, err := game.NewGuessCache(opts.GuessCacheSize)
	if err != nil {
		return Session{}, err
	}
	return Session{
		players: make(map[string]*drawing.Drawing),
		cache:   cache,
		state:   game.NewState(),
		prompts: game.NewPromptPicker(opts.Intn),
	}, nil
}

// Host runs the game of one room: it tracks every player's drawing, answers
// the control RPCs and judges running rounds.
type Host struct {
	room    Room
	admin   RoomAdmin
	guesser Guesser
	judge   Judge
	opts    Options
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *taskSet
	loops  sync.WaitGroup

	// serializes metadata writes so the last write carries the newest state
	publishMu sync.Mutex

	mu          sync.Mutex
	session     Session
	judgeCancel context.CancelFunc
	closed      bool
}

func New(room Room, admin RoomAdmin, guesser Guesser, judge Judge, opts Options) (*Host, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	session, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		room:    room,
		admin:   admin,
		guesser: guesser,
		judge:   judge,
		opts:    opts,
		log:     logger.Room(room.Name()),
		ctx:     ctx,
		cancel:  cancel,
		tasks:   newTaskSet(ctx),
		session: session,
	}, nil
}

// Connect attaches the host to its room: it exposes the control RPCs,
// registers whoever is already there, restores the persisted state and
// publishes it. A failed publish is logged and the host keeps running; the
// next transition publishes again.
func (h *Host) Connect(ctx context.Context) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHostClosed
	}

	h.room.RegisterRPCMethod(MethodStartGame, h.handleStartGame)
	h.room.RegisterRPCMethod(MethodEndGame, h.handleEndGame)
	h.room.RegisterRPCMethod(MethodUpdateDifficulty, h.handleUpdateDifficulty)
	h.room.OnEvent(h.HandleEvent)

	for _, p := range h.room.Participants() {
		h.register(p)
	}

	h.restore(h.room.Metadata())
	h.publishState(ctx)
	return nil
}

func (h *Host) restore(metadata string) {
	if metadata == "" {
		return
	}
	state, err := game.ParseState(metadata)
	if err != nil {
		h.log.Warn().Err(err).Msg("ignoring unreadable room metadata")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.state = state
	if state.Started {
		h.session.round++
		h.startJudgeLocked(h.session.round)
	}
	h.log.Info().Bool("started", state.Started).Str("difficulty", string(state.Difficulty)).Msg("restored game state")
}

// Close stops judging, cancels pending kicks and drawing transfers and waits
// for all of them.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.stopJudgeLocked()
	h.mu.Unlock()

	h.cancel()
	h.loops.Wait()
	h.tasks.Close()
}

// State returns a copy of the current game state.
func (h *Host) State() game.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.state.Clone()
}

// Players lists the registered identities in order.
func (h *Host) Players() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.session.players))
}

// publishState writes the state as it is when the write goes out. Failures
// leave memory ahead of storage until the next successful publish.
func (h *Host) publishState(ctx context.Context) error {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	metadata, err := h.session.state.Marshal()
	h.mu.Unlock()
	if err != nil {
		h.log.Error().Err(err).Msg("cannot serialize game state")
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.RPCTimeout)
	defer cancel()
	if err := h.admin.UpdateRoomMetadata(ctx, h.room.Name(), metadata); err != nil {
		h.log.Warn().Err(err).Msg("publishing game state failed")
		return err
	}
	return nil
}
