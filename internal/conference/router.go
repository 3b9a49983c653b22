package conference

import (
	"encoding/json"
	"fmt"
)

// Conn is the transport endpoint of one participant.
type Conn interface {
	// TrySend queues a frame without blocking. False means the frame was not queued
	// and the connection should be considered gone.
	TrySend(frame []byte) bool
	Close()
}

// Delivery is how an event fans out.
type Delivery int

const (
	// ToAll reaches every registered participant, originator included.
	ToAll Delivery = iota
	// ToOthers skips the originator, who already holds local truth.
	ToOthers
	// ToTarget is point-to-point and never broadcast.
	ToTarget
)

func deliveryFor(eventType string) Delivery {
	switch eventType {
	case EventOffer, EventAnswer, EventICECandidate, EventKicked, EventStateSync:
		return ToTarget
	case EventToggleAudio, EventToggleVideo, EventToggleScreenShare, EventSpeaking, EventParticipantJoined:
		return ToOthers
	default:
		return ToAll
	}
}

// route computes the target set in join order.
func route(reg *registry, d Delivery, from, target string) []*member {
	switch d {
	case ToTarget:
		if m := reg.get(target); m != nil {
			return []*member{m}
		}
		return nil
	case ToOthers:
		out := make([]*member, 0, reg.count())
		for _, m := range reg.order {
			if m.p.ID != from {
				out = append(out, m)
			}
		}
		return out
	default:
		return append([]*member(nil), reg.order...)
	}
}

// fanout encodes ev once and queues the frame on every target. It returns the frame and
// the members whose connection refused it.
func fanout(targets []*member, ev Event) ([]byte, []*member, error) {
	frame, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	var dropped []*member
	for _, m := range targets {
		if !m.conn.TrySend(frame) {
			dropped = append(dropped, m)
		}
	}
	return frame, dropped, nil
}
