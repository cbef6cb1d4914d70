package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
)

// ChatRelay forwards chat lines to the sender's room. Nothing is stored.
type ChatRelay struct {
	rooms *RoomService
}

func NewChatRelay(rooms *RoomService) *ChatRelay {
	return &ChatRelay{rooms: rooms}
}

func (c *ChatRelay) SendChatMessage(ctx context.Context, playerID string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errs.New(errs.InvalidPayload, "message is empty")
	}
	if utf8.RuneCountInString(text) > MAX_CHAT_LEN {
		return errs.Newf(errs.InvalidPayload, "message longer than %d characters", MAX_CHAT_LEN)
	}

	_, err := c.rooms.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		broadcast := dto.WrapResponse(dto.RESP_CHAT_MESSAGE_RECEIVED, dto.ChatMessageReceivedEvent{
			PlayerID:    p.ID,
			DisplayName: p.Name,
			Text:        text,
			Timestamp:   c.rooms.timestamp(),
		})

		return Outcome{Broadcast: &broadcast}, nil
	})

	return err
}
