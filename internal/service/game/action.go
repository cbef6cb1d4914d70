package game

import (
	"encoding/json"
	"strings"

	"stop-game-be/internal/service/errs"
)

// 游戏内动作类型
const (
	ACTION_START_ROUND    = "START_ROUND"
	ACTION_STOP           = "STOP"
	ACTION_SUBMIT_ANSWERS = "SUBMIT_ANSWERS"
	ACTION_VOTE_ANSWER    = "VOTE_ANSWER"
	ACTION_NEXT_ROUND     = "NEXT_ROUND"
)

// Action is the closed set of in-game actions. Only the types in this file
// implement it.
type Action interface {
	ActionType() string
	isAction()
}

type StartRoundAction struct{}

type StopAction struct{}

type SubmitAnswersAction struct {
	Answers map[string]string `json:"answers"`
}

type VoteAnswerAction struct {
	PlayerID string `json:"player_id"`
	Category string `json:"category"`
	IsValid  bool   `json:"is_valid"`
}

type NextRoundAction struct{}

func (StartRoundAction) ActionType() string    { return ACTION_START_ROUND }
func (StopAction) ActionType() string          { return ACTION_STOP }
func (SubmitAnswersAction) ActionType() string { return ACTION_SUBMIT_ANSWERS }
func (VoteAnswerAction) ActionType() string    { return ACTION_VOTE_ANSWER }
func (NextRoundAction) ActionType() string     { return ACTION_NEXT_ROUND }

func (StartRoundAction) isAction()    {}
func (StopAction) isAction()          {}
func (SubmitAnswersAction) isAction() {}
func (VoteAnswerAction) isAction()    {}
func (NextRoundAction) isAction()     {}

// ParseAction turns an untyped action-plus-payload into one of the known
// actions. An unknown tag is rejected so clients can detect protocol drift.
func ParseAction(actionType string, payload json.RawMessage) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(actionType)) {
	case ACTION_START_ROUND:
		return StartRoundAction{}, nil

	case ACTION_STOP:
		return StopAction{}, nil

	case ACTION_NEXT_ROUND:
		return NextRoundAction{}, nil

	case ACTION_SUBMIT_ANSWERS:
		var a SubmitAnswersAction
		if err := unmarshalPayload(payload, &a); err != nil {
			return nil, err
		}
		if a.Answers == nil {
			a.Answers = make(map[string]string)
		}
		return a, nil

	case ACTION_VOTE_ANSWER:
		var a VoteAnswerAction
		if err := unmarshalPayload(payload, &a); err != nil {
			return nil, err
		}
		if a.PlayerID == "" || a.Category == "" {
			return nil, errs.New(errs.InvalidPayload, "vote requires player_id and category")
		}
		return a, nil
	}

	return nil, errs.Newf(errs.InvalidRoomState, "unknown action type %q", actionType)
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errs.Newf(errs.InvalidPayload, "bad action payload: %v", err)
	}
	return nil
}
