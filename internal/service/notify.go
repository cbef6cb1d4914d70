package service

import (
	"errors"

	"stop-game-be/internal/service/dto"

	"go.uber.org/zap"
)

var (
	ErrBackpressure = errors.New("connection send buffer is full")
	ErrNoConnection = errors.New("player has no live connection")
)

// Conn is the server side of one client connection. TrySend must not block.
type Conn interface {
	TrySend(msg dto.ResponseWrapper) error
	Close()
}

type PublishResult struct {
	SentTo  []string
	Dropped []string
}

// Notify delivers msg to each player independently. Failures are collected,
// never retried, and never abort the remaining deliveries.
func (s *Sessions) Notify(playerIDs []string, msg dto.ResponseWrapper) PublishResult {
	var res PublishResult

	for _, id := range playerIDs {
		if err := s.Send(id, msg); err != nil {
			res.Dropped = append(res.Dropped, id)

			zap.L().Debug(
				"发送通知失败",
				zap.String("player_id", id),
				zap.String("response_type", msg.RespType),
				zap.Error(err),
			)
			continue
		}
		res.SentTo = append(res.SentTo, id)
	}

	return res
}
