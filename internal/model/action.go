package model

import (
	"encoding/json"
	"fmt"
)

// Action is a pending compose-box instruction applied on the next Post.
// A nil Action means a plain message. The concrete variants are Edit,
// Reply and Share; Post matches on them exhaustively.
type Action interface {
	isAction()
}

// Edit replaces the body of an existing message.
type Edit struct {
	RelatedMessageID int64
}

// Reply posts a new message referencing an existing one.
type Reply struct {
	RelatedMessageID int64
}

// Share posts a new message carrying another message's body as shared
// content.
type Share struct {
	RelatedMessageID int64
	Body             string
}

func (Edit) isAction()  {}
func (Reply) isAction() {}
func (Share) isAction() {}

// ActionEnvelope is the wire form of an Action:
// {"action":"edit|reply|share","title":...,"body":...,"relatedMessageId":...}.
// Title is display-only and dropped on decode.
type ActionEnvelope struct {
	Action           string `json:"action"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body,omitempty"`
	RelatedMessageID int64  `json:"relatedMessageId"`
}

// Decode converts the envelope into its variant. An empty envelope decodes
// to nil (plain post).
func (e *ActionEnvelope) Decode() (Action, error) {
	if e == nil || e.Action == "" {
		return nil, nil
	}
	switch e.Action {
	case "edit":
		return Edit{RelatedMessageID: e.RelatedMessageID}, nil
	case "reply":
		return Reply{RelatedMessageID: e.RelatedMessageID}, nil
	case "share":
		return Share{RelatedMessageID: e.RelatedMessageID, Body: e.Body}, nil
	default:
		return nil, fmt.Errorf("unknown compose action %q", e.Action)
	}
}

// DecodeAction parses the JSON wire form into an Action.
func DecodeAction(data []byte) (Action, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode compose action: %w", err)
	}
	return env.Decode()
}
