package models

import (
	"encoding/json"
	"time"
)

// Whiteboard action types.
const (
	WhiteboardAdd   = "add"
	WhiteboardClear = "clear"
	WhiteboardUndo  = "undo"
	WhiteboardRedo  = "redo"
)

// WhiteboardAction is one entry in a conference's whiteboard log.
type WhiteboardAction struct {
	ID            string          `json:"id"`
	ConferenceID  string          `json:"conferenceId"`
	ParticipantID string          `json:"participantId"`
	Action        string          `json:"action"`
	Element       json.RawMessage `json:"element,omitempty"`
	Seq           uint64          `json:"seq"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ValidWhiteboardAction reports whether action is a supported whiteboard action type.
func ValidWhiteboardAction(action string) bool {
	switch action {
	case WhiteboardAdd, WhiteboardClear, WhiteboardUndo, WhiteboardRedo:
		return true
	}
	return false
}

// ReplayWhiteboard folds a whiteboard log into the list of visible elements.
// A clear is undoable as a single step; redo history is discarded by any add or clear.
func ReplayWhiteboard(log []WhiteboardAction) []json.RawMessage {
	type step struct {
		action  string
		element json.RawMessage
		cleared []json.RawMessage
	}
	var (
		visible []json.RawMessage
		done    []step
		undone  []step
	)
	apply := func(s step) {
		switch s.action {
		case WhiteboardAdd:
			visible = append(visible, s.element)
		case WhiteboardClear:
			visible = nil
		}
	}
	for _, a := range log {
		switch a.Action {
		case WhiteboardAdd:
			s := step{action: WhiteboardAdd, element: a.Element}
			apply(s)
			done = append(done, s)
			undone = undone[:0]
		case WhiteboardClear:
			s := step{action: WhiteboardClear, cleared: append([]json.RawMessage(nil), visible...)}
			apply(s)
			done = append(done, s)
			undone = undone[:0]
		case WhiteboardUndo:
			if len(done) == 0 {
				continue
			}
			s := done[len(done)-1]
			done = done[:len(done)-1]
			switch s.action {
			case WhiteboardAdd:
				if len(visible) > 0 {
					visible = visible[:len(visible)-1]
				}
			case WhiteboardClear:
				visible = append([]json.RawMessage(nil), s.cleared...)
			}
			undone = append(undone, s)
		case WhiteboardRedo:
			if len(undone) == 0 {
				continue
			}
			s := undone[len(undone)-1]
			undone = undone[:len(undone)-1]
			if s.action == WhiteboardClear {
				s.cleared = append([]json.RawMessage(nil), visible...)
			}
			apply(s)
			done = append(done, s)
		}
	}
	return visible
}
