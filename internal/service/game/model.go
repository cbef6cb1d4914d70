package game

// 游戏阶段
const (
	PHASE_IDLE         = "idle"
	PHASE_ROUND_ACTIVE = "round_active"
	PHASE_STOPPED      = "stopped"
	PHASE_GAME_OVER    = "game_over"
)

const (
	MIN_CATEGORIES = 3
	MIN_ROUNDS     = 1
	MAX_ROUNDS     = 10
)

// DefaultCategories is offered to a host who has not configured the game yet.
var DefaultCategories = []string{
	"Name",
	"Animal",
	"Country/City",
	"Food",
	"Object",
	"Color",
	"Movie/Series",
	"Profession",
}

type PlayerAnswers struct {
	PlayerID    string            `json:"player_id"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt int64             `json:"submitted_at"`
}

// GameState is the authoritative per-room game data. Categories and
// TotalRounds are fixed once the game is created.
type GameState struct {
	Categories     []string                 `json:"categories"`
	TotalRounds    int                      `json:"total_rounds"`
	CurrentRound   int                      `json:"current_round"`
	CurrentLetter  string                   `json:"current_letter"`
	RoundStartTime int64                    `json:"round_start_time"`
	RoundEndTime   int64                    `json:"round_end_time,omitempty"`
	Phase          string                   `json:"phase"`
	StoppedBy      string                   `json:"stopped_by,omitempty"`
	PlayerAnswers  map[string]PlayerAnswers `json:"player_answers"`
	Scores         map[string]int           `json:"scores"`
	UsedLetters    []string                 `json:"used_letters"`
	LastRound      *RoundResult             `json:"last_round,omitempty"`

	// target player -> category -> voter -> isValid
	votes map[string]map[string]map[string]bool
}

// Actor is the player on whose behalf an action runs.
type Actor struct {
	ID     string
	IsHost bool
}

func (gs *GameState) hasCategory(category string) bool {
	for _, c := range gs.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func (gs *GameState) clearRound() {
	gs.PlayerAnswers = make(map[string]PlayerAnswers)
	gs.votes = make(map[string]map[string]map[string]bool)
	gs.StoppedBy = ""
	gs.RoundEndTime = 0
}

// Clone returns a deep copy safe to hand to other goroutines.
func (gs *GameState) Clone() GameState {
	out := *gs

	out.Categories = append([]string(nil), gs.Categories...)
	out.UsedLetters = append([]string(nil), gs.UsedLetters...)

	out.PlayerAnswers = make(map[string]PlayerAnswers, len(gs.PlayerAnswers))
	for id, pa := range gs.PlayerAnswers {
		out.PlayerAnswers[id] = pa.clone()
	}

	out.Scores = make(map[string]int, len(gs.Scores))
	for id, s := range gs.Scores {
		out.Scores[id] = s
	}

	if gs.LastRound != nil {
		lr := gs.LastRound.clone()
		out.LastRound = &lr
	}

	out.votes = nil

	return out
}

func (pa PlayerAnswers) clone() PlayerAnswers {
	answers := make(map[string]string, len(pa.Answers))
	for k, v := range pa.Answers {
		answers[k] = v
	}
	pa.Answers = answers
	return pa
}
