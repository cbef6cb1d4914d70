package service

import (
	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/game"
)

type Player struct {
	ID      string
	Name    string
	IsHost  bool
	IsReady bool
}

// Room is owned by its own goroutine (see roomLoop). Nothing outside that
// goroutine may read or write its fields except the immutable ones.
type Room struct {
	// immutable after creation
	ID       string
	Code     string
	Name     string
	Capacity int

	Status   string
	Players  []*Player
	Settings dto.GameSettings
	machine  *game.Machine

	reqCh chan roomRequest
	done  chan struct{}
}

// Outcome is what one applied mutation emits: the acknowledgement for the
// requester, plus zero or one broadcast and any direct notices.
type Outcome struct {
	Ack       any
	Broadcast *dto.ResponseWrapper
	Unicast   map[string]dto.ResponseWrapper
}

type roomRequest struct {
	fn    func(*Room) (Outcome, error)
	resCh chan roomResult
}

type roomResult struct {
	out Outcome
	err error
}

func (r *Room) host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (r *Room) find(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// remove drops a player keeping join order. When the host leaves, the
// earliest remaining joiner becomes host and is returned as newHost.
func (r *Room) remove(playerID string) (removed *Player, newHost *Player) {
	idx := -1
	for i, p := range r.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	removed = r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	if r.machine != nil {
		r.machine.RemovePlayer(removed.ID)
	}

	if removed.IsHost && len(r.Players) > 0 {
		newHost = r.Players[0]
		newHost.IsHost = true
		newHost.IsReady = false
	}

	return removed, newHost
}

func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) toDTO() dto.Room {
	out := dto.Room{
		ID:       r.ID,
		Code:     r.Code,
		Name:     r.Name,
		Players:  make([]dto.Player, 0, len(r.Players)),
		Capacity: r.Capacity,
		Status:   r.Status,
		Settings: dto.GameSettings{
			Categories:  append([]string(nil), r.Settings.Categories...),
			TotalRounds: r.Settings.TotalRounds,
		},
	}

	if h := r.host(); h != nil {
		out.HostID = h.ID
	}
	for _, p := range r.Players {
		out.Players = append(out.Players, p.toDTO())
	}

	if r.machine != nil {
		snap := r.machine.Snapshot()
		out.Game = &snap
	}

	return out
}

// pendingState is the game a StartGame with no arguments would create now.
func (r *Room) pendingState() game.GameState {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = 0
	}

	return game.GameState{
		Categories:    append([]string(nil), r.Settings.Categories...),
		TotalRounds:   r.Settings.TotalRounds,
		Phase:         game.PHASE_IDLE,
		PlayerAnswers: map[string]game.PlayerAnswers{},
		Scores:        scores,
		UsedLetters:   []string{},
	}
}

func (p *Player) toDTO() dto.Player {
	return dto.Player{
		ID:      p.ID,
		Name:    p.Name,
		IsHost:  p.IsHost,
		IsReady: p.IsReady,
	}
}
