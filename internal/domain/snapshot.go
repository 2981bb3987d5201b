package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a full, self-contained copy of a room's state tagged with its
// revision. Late joiners receive exactly one before their delta stream; the
// persistence sink receives one when a room is destroyed.
type Snapshot struct {
	RoomID       uuid.UUID     `json:"roomId"`
	Name         string        `json:"name"`
	OwnerID      string        `json:"ownerId"`
	Visibility   Visibility    `json:"visibility"`
	JoinCode     string        `json:"joinCode,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	Revision     uint64        `json:"revision"`
	Participants []Participant `json:"participants"`
	Queue        []QueueEntry  `json:"queue"`
	Playback     PlaybackState `json:"playback"`
	Chat         []ChatMessage `json:"chat"`
}

// Snapshot copies the room state section by section so the caller holds no
// references into the actor-owned aggregate.
func (r *Room) Snapshot() Snapshot {
	queue := make([]QueueEntry, len(r.Queue))
	copy(queue, r.Queue)

	chat := make([]ChatMessage, len(r.Chat))
	copy(chat, r.Chat)

	playback := r.Playback
	if r.Playback.Current != nil {
		current := *r.Playback.Current
		playback.Current = &current
	}

	return Snapshot{
		RoomID:       r.ID,
		Name:         r.Name,
		OwnerID:      r.OwnerID,
		Visibility:   r.Visibility,
		JoinCode:     r.JoinCode,
		CreatedAt:    r.CreatedAt,
		Revision:     r.Revision,
		Participants: r.Roster(),
		Queue:        queue,
		Playback:     playback,
		Chat:         chat,
	}
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return b, nil
}

func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return s, nil
}
