package game

import (
	"sort"
	"strings"
	"unicode/utf8"

	"stop-game-be/internal/service/errs"

	"go.uber.org/zap"
)

// 一局游戏分为 4 个阶段：
// 1. 空闲（idle）：游戏已创建，等待房主开始第一轮
// 2. 进行中（round_active）：字母已公布，玩家作答
// 3. 已喊停（stopped）：有人喊了 Stop，仍可补交答案和投票
// 4. 结束（game_over）：最后一轮结算完毕，终态
type StageHandler interface {
	Phase() string

	OnEnter(m *Machine)
	OnHandle(m *Machine, actor Actor, action Action) (any, error)
	OnExit(m *Machine)

	SetOnSwitch(func(nextPhase string))
}

const MAX_ANSWER_LEN = 64

// 广播给房间的增量
type RoundStarted struct {
	Round          int    `json:"round"`
	Letter         string `json:"letter"`
	RoundStartTime int64  `json:"round_start_time"`
}

type RoundStopped struct {
	StoppedBy    string `json:"stopped_by"`
	RoundEndTime int64  `json:"round_end_time"`
}

type AnswersSubmitted struct {
	PlayerAnswers
}

type AnswerVoted struct {
	VoterID  string `json:"voter_id"`
	PlayerID string `json:"player_id"`
	Category string `json:"category"`
	IsValid  bool   `json:"is_valid"`
}

type RoundAdvanced struct {
	RoundStarted
	LastRound RoundResult    `json:"last_round"`
	Scores    map[string]int `json:"scores"`
}

type GameOver struct {
	LastRound RoundResult    `json:"last_round"`
	Scores    map[string]int `json:"scores"`
	Winners   []string       `json:"winners"`
}

type baseStageHandler struct {
	onSwitch func(string)
}

func (b *baseStageHandler) SetOnSwitch(onSwitch func(string)) {
	b.onSwitch = onSwitch
}

func (b *baseStageHandler) OnEnter(*Machine) {}

func (b *baseStageHandler) OnExit(*Machine) {}

// 空闲阶段
type idleStageHandler struct {
	baseStageHandler
}

func newIdleStageHandler() *idleStageHandler {
	return &idleStageHandler{}
}

func (h *idleStageHandler) Phase() string {
	return PHASE_IDLE
}

func (h *idleStageHandler) OnHandle(m *Machine, actor Actor, action Action) (any, error) {
	switch action.(type) {
	case StartRoundAction:
		if !actor.IsHost {
			return nil, errs.New(errs.NotHost, "only the host can start a round")
		}
		if m.state.CurrentRound >= m.state.TotalRounds {
			return nil, errs.Newf(errs.RoundLimitExceeded, "all %d rounds have been played", m.state.TotalRounds)
		}

		started := beginRound(m)
		h.onSwitch(PHASE_ROUND_ACTIVE)

		return started, nil
	}

	return nil, wrongPhase(action, PHASE_IDLE)
}

// 作答阶段
type activeStageHandler struct {
	baseStageHandler
}

func newActiveStageHandler() *activeStageHandler {
	return &activeStageHandler{}
}

func (h *activeStageHandler) Phase() string {
	return PHASE_ROUND_ACTIVE
}

func (h *activeStageHandler) OnEnter(m *Machine) {
	zap.L().Debug(
		"round started",
		zap.Int("round", m.state.CurrentRound),
		zap.String("letter", m.state.CurrentLetter),
	)
}

func (h *activeStageHandler) OnHandle(m *Machine, actor Actor, action Action) (any, error) {
	switch a := action.(type) {
	case StopAction:
		m.state.StoppedBy = actor.ID
		m.state.RoundEndTime = m.nowMillis()
		h.onSwitch(PHASE_STOPPED)

		return RoundStopped{
			StoppedBy:    m.state.StoppedBy,
			RoundEndTime: m.state.RoundEndTime,
		}, nil

	case SubmitAnswersAction:
		return submitAnswers(m, actor, a)
	}

	return nil, wrongPhase(action, PHASE_ROUND_ACTIVE)
}

// 喊停阶段
type stoppedStageHandler struct {
	baseStageHandler
}

func newStoppedStageHandler() *stoppedStageHandler {
	return &stoppedStageHandler{}
}

func (h *stoppedStageHandler) Phase() string {
	return PHASE_STOPPED
}

func (h *stoppedStageHandler) OnHandle(m *Machine, actor Actor, action Action) (any, error) {
	switch a := action.(type) {
	case StopAction:
		// first caller already won; later calls in the same round do nothing
		return nil, nil

	case SubmitAnswersAction:
		return submitAnswers(m, actor, a)

	case VoteAnswerAction:
		return voteAnswer(m, actor, a)

	case NextRoundAction:
		if !actor.IsHost {
			return nil, errs.New(errs.NotHost, "only the host can advance the game")
		}

		result := finalizeRound(m)

		if m.state.CurrentRound >= m.state.TotalRounds {
			h.onSwitch(PHASE_GAME_OVER)

			return GameOver{
				LastRound: result.clone(),
				Scores:    copyScores(m.state.Scores),
				Winners:   winners(m.state.Scores, m.departed),
			}, nil
		}

		started := beginRound(m)
		h.onSwitch(PHASE_ROUND_ACTIVE)

		return RoundAdvanced{
			RoundStarted: started,
			LastRound:    result.clone(),
			Scores:       copyScores(m.state.Scores),
		}, nil
	}

	return nil, wrongPhase(action, PHASE_STOPPED)
}

// 结束阶段，终态
type overStageHandler struct {
	baseStageHandler
}

func newOverStageHandler() *overStageHandler {
	return &overStageHandler{}
}

func (h *overStageHandler) Phase() string {
	return PHASE_GAME_OVER
}

func (h *overStageHandler) OnEnter(m *Machine) {
	zap.L().Debug(
		"game over",
		zap.Int("rounds", m.state.CurrentRound),
		zap.Any("scores", m.state.Scores),
	)
}

func (h *overStageHandler) OnHandle(m *Machine, actor Actor, action Action) (any, error) {
	return nil, wrongPhase(action, PHASE_GAME_OVER)
}

func beginRound(m *Machine) RoundStarted {
	letter := pickLetter(m.rng, m.state.UsedLetters)

	m.state.CurrentRound++
	m.state.CurrentLetter = letter
	m.state.UsedLetters = append(m.state.UsedLetters, letter)
	m.state.RoundStartTime = m.nowMillis()
	m.state.clearRound()

	return RoundStarted{
		Round:          m.state.CurrentRound,
		Letter:         letter,
		RoundStartTime: m.state.RoundStartTime,
	}
}

func submitAnswers(m *Machine, actor Actor, a SubmitAnswersAction) (any, error) {
	if _, done := m.state.PlayerAnswers[actor.ID]; done {
		return nil, errs.Newf(errs.AlreadySubmitted, "answers for round %d were already submitted", m.state.CurrentRound)
	}

	answers := make(map[string]string, len(m.state.Categories))
	for category, answer := range a.Answers {
		if !m.state.hasCategory(category) {
			continue
		}
		answers[category] = clampAnswer(answer)
	}

	pa := PlayerAnswers{
		PlayerID:    actor.ID,
		Answers:     answers,
		SubmittedAt: m.nowMillis(),
	}
	m.state.PlayerAnswers[actor.ID] = pa

	return AnswersSubmitted{PlayerAnswers: pa.clone()}, nil
}

func voteAnswer(m *Machine, actor Actor, a VoteAnswerAction) (any, error) {
	if !m.state.hasCategory(a.Category) {
		return nil, errs.Newf(errs.InvalidPayload, "unknown category %q", a.Category)
	}
	if _, ok := m.state.PlayerAnswers[a.PlayerID]; !ok {
		return nil, errs.New(errs.InvalidPayload, "that player has no answers this round")
	}

	byCategory, ok := m.state.votes[a.PlayerID]
	if !ok {
		byCategory = make(map[string]map[string]bool)
		m.state.votes[a.PlayerID] = byCategory
	}
	byVoter, ok := byCategory[a.Category]
	if !ok {
		byVoter = make(map[string]bool)
		byCategory[a.Category] = byVoter
	}
	byVoter[actor.ID] = a.IsValid

	return AnswerVoted{
		VoterID:  actor.ID,
		PlayerID: a.PlayerID,
		Category: a.Category,
		IsValid:  a.IsValid,
	}, nil
}

func finalizeRound(m *Machine) RoundResult {
	result := m.scorer.Score(RoundInput{
		Round:      m.state.CurrentRound,
		Letter:     m.state.CurrentLetter,
		Categories: m.state.Categories,
		Players:    sortedPlayers(m.state.Scores, m.state.PlayerAnswers),
		Answers:    m.state.PlayerAnswers,
		Votes:      m.state.votes,
	})

	for id, pts := range result.PlayerScores {
		m.state.Scores[id] += pts
	}
	m.state.LastRound = &result

	return result
}

// winners returns the top scorers among players still in the room.
func winners(scores map[string]int, departed map[string]bool) []string {
	best := 0
	out := make([]string, 0, 1)
	for id, s := range scores {
		if departed[id] {
			continue
		}
		switch {
		case s > best:
			best = s
			out = append(out[:0], id)
		case s == best:
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}

func clampAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) <= MAX_ANSWER_LEN {
		return answer
	}
	return string([]rune(answer)[:MAX_ANSWER_LEN])
}

func wrongPhase(action Action, phase string) error {
	return errs.Newf(errs.InvalidRoomState, "%s is not allowed while the game is %s", action.ActionType(), phase)
}
