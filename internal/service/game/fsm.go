package game

import (
	"math/rand/v2"
	"strings"
	"time"

	"stop-game-be/internal/service/errs"

	"go.uber.org/zap"
)

// Machine 是一局游戏的状态机。它不做任何同步，调用方（房间协程）
// 保证同一时刻只有一个动作在执行。
type Machine struct {
	state   *GameState
	handler StageHandler

	rng    *rand.Rand
	now    func() time.Time
	scorer Scorer

	// players who left mid-game; they stay on the scoreboard but cannot win
	departed map[string]bool
}

type Option func(*Machine)

func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) { m.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func WithScorer(scorer Scorer) Option {
	return func(m *Machine) { m.scorer = scorer }
}

// NewMachine builds a machine in PHASE_IDLE with every given player at score 0.
func NewMachine(categories []string, totalRounds int, players []string, opts ...Option) (*Machine, error) {
	cats, err := ValidateConfig(categories, totalRounds)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(players))
	for _, id := range players {
		scores[id] = 0
	}

	m := &Machine{
		state: &GameState{
			Categories:  cats,
			TotalRounds: totalRounds,
			Phase:       PHASE_IDLE,
			Scores:      scores,
			UsedLetters: make([]string, 0, totalRounds),
		},
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
		scorer:   ClassicScorer{},
		departed: make(map[string]bool),
	}
	m.state.clearRound()

	for _, opt := range opts {
		opt(m)
	}

	m.handler = m.newHandler(PHASE_IDLE)
	m.handler.OnEnter(m)

	return m, nil
}

// ValidateConfig checks a category list and round count and returns the
// trimmed categories.
func ValidateConfig(categories []string, totalRounds int) ([]string, error) {
	if totalRounds < MIN_ROUNDS || totalRounds > MAX_ROUNDS {
		return nil, errs.Newf(errs.InvalidConfiguration, "total rounds must be between %d and %d", MIN_ROUNDS, MAX_ROUNDS)
	}

	out := make([]string, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, errs.New(errs.InvalidConfiguration, "category labels must not be blank")
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			return nil, errs.Newf(errs.InvalidConfiguration, "duplicate category %q", c)
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	if len(out) < MIN_CATEGORIES {
		return nil, errs.Newf(errs.InvalidConfiguration, "at least %d categories are required", MIN_CATEGORIES)
	}

	return out, nil
}

// Apply runs one action against the current stage. On success it returns the
// delta to broadcast; a nil delta with a nil error means the action was a
// no-op. On failure the state is untouched.
func (m *Machine) Apply(actor Actor, action Action) (any, error) {
	delta, err := m.handler.OnHandle(m, actor, action)
	if err != nil {
		zap.L().Debug(
			"game action rejected",
			zap.String("phase", m.handler.Phase()),
			zap.String("action", action.ActionType()),
			zap.String("player_id", actor.ID),
			zap.Error(err),
		)
		return nil, err
	}

	if m.state.Phase != m.handler.Phase() {
		m.switchStage()
		m.handler.OnEnter(m)
	}

	return delta, nil
}

// Reconfigure replaces categories and round count. Only allowed before the
// first round has started.
func (m *Machine) Reconfigure(actor Actor, categories []string, totalRounds int) error {
	if !actor.IsHost {
		return errs.New(errs.NotHost, "only the host can initialize the game")
	}
	if m.state.Phase != PHASE_IDLE || m.state.CurrentRound != 0 {
		return errs.New(errs.InvalidRoomState, "game configuration is fixed once a round has started")
	}

	cats, err := ValidateConfig(categories, totalRounds)
	if err != nil {
		return err
	}

	m.state.Categories = cats
	m.state.TotalRounds = totalRounds

	return nil
}

// RemovePlayer records that a player left the room. Their points are kept.
func (m *Machine) RemovePlayer(playerID string) {
	if _, ok := m.state.Scores[playerID]; ok {
		m.departed[playerID] = true
	}
}

func (m *Machine) Phase() string {
	return m.state.Phase
}

func (m *Machine) Snapshot() GameState {
	return m.state.Clone()
}

func (m *Machine) switchStage() {
	m.handler.OnExit(m)
	m.handler = m.newHandler(m.state.Phase)
}

func (m *Machine) newHandler(phase string) StageHandler {
	var h StageHandler

	switch phase {
	case PHASE_IDLE:
		h = newIdleStageHandler()
	case PHASE_ROUND_ACTIVE:
		h = newActiveStageHandler()
	case PHASE_STOPPED:
		h = newStoppedStageHandler()
	case PHASE_GAME_OVER:
		h = newOverStageHandler()
	default:
		zap.L().Error("unknown game phase", zap.String("phase", phase))
		h = newOverStageHandler()
	}

	h.SetOnSwitch(func(next string) {
		m.state.Phase = next
	})

	return h
}

func (m *Machine) nowMillis() int64 {
	return m.now().UnixMilli()
}
