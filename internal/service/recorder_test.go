package service

import (
	"sync"

	"stop-game-be/internal/service/dto"
)

// recorder is an in-memory Notifier that keeps every message per player.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]dto.ResponseWrapper
}

func newRecorder() *recorder {
	return &recorder{msgs: make(map[string][]dto.ResponseWrapper)}
}

func (r *recorder) Notify(playerIDs []string, msg dto.ResponseWrapper) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range playerIDs {
		r.msgs[id] = append(r.msgs[id], msg)
	}

	return PublishResult{SentTo: append([]string(nil), playerIDs...)}
}

func (r *recorder) types(playerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, m := range r.msgs[playerID] {
		out = append(out, m.RespType)
	}
	return out
}

func (r *recorder) last(playerID string) dto.ResponseWrapper {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.msgs[playerID]
	if len(msgs) == 0 {
		return dto.ResponseWrapper{}
	}
	return msgs[len(msgs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = make(map[string][]dto.ResponseWrapper)
}
