package model

import (
	"encoding/json"
	"fmt"
)

// ReplyRef is a reference to the message being replied to. On the wire it
// is either a bare message id or a full message object; renderers resolve
// bare ids against the chat's message collection.
type ReplyRef struct {
	ID      int64
	Message *Message
}

// Ref builds a ReplyRef pointing at a message id.
func Ref(id int64) *ReplyRef {
	return &ReplyRef{ID: id}
}

func (r *ReplyRef) MarshalJSON() ([]byte, error) {
	if r.Message != nil {
		return json.Marshal(r.Message)
	}
	return json.Marshal(r.ID)
}

func (r *ReplyRef) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '{' {
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("reply ref object: %w", err)
		}
		r.Message = &m
		r.ID = m.ID
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("reply ref id: %w", err)
	}
	r.ID = id
	return nil
}
