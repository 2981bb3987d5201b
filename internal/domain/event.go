package domain

import "github.com/google/uuid"

type EventType string

const (
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventQueueUpdated      EventType = "queue_updated"
	EventPlaybackChanged   EventType = "playback_changed"
	EventChatMessage       EventType = "chat_message"
)

// Event is the delta emitted after one applied command. The optional sections
// carry the parts of the room state the command touched; clients apply them
// keyed on Revision and ignore anything at or below what they already hold.
type Event struct {
	Type     EventType `json:"type"`
	RoomID   uuid.UUID `json:"roomId"`
	Revision uint64    `json:"revision"`
	ActorID  string    `json:"actorId,omitempty"`

	Participants []Participant  `json:"roster,omitempty"`
	OwnerID      string         `json:"ownerId,omitempty"`
	Queue        []QueueEntry   `json:"queue,omitempty"`
	Playback     *PlaybackState `json:"playback,omitempty"`
	Message      *ChatMessage   `json:"message,omitempty"`
}
