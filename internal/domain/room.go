package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type PlaybackStatus string

const (
	StatusIdle    PlaybackStatus = "idle"
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
)

type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
)

// Identity is resolved and verified outside the engine. The engine never
// authenticates credentials itself.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type Participant struct {
	Identity
	JoinedAt   time.Time       `json:"joinedAt"`
	Connection ConnectionState `json:"connection"`
}

// SongMetadata is resolved against the catalog collaborator before the
// enqueue command is issued; the engine only carries it.
type SongMetadata struct {
	Title        string `json:"title"`
	Artist       string `json:"artist,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MediaID      string `json:"mediaId"`
	DurationMs   int64  `json:"durationMs"`
}

type QueueEntry struct {
	ID      uuid.UUID    `json:"id"`
	Song    SongMetadata `json:"song"`
	AddedBy string       `json:"addedBy"`
	AddedAt time.Time    `json:"addedAt"`
}

// PlaybackState tracks the logical transport position only; decoding and
// rendering of the media happens on each client.
type PlaybackState struct {
	Current    *QueueEntry    `json:"current,omitempty"`
	Status     PlaybackStatus `json:"status"`
	PositionMs int64          `json:"positionMs"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Playlist struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   string         `json:"ownerId"`
	Name      string         `json:"name"`
	Songs     []SongMetadata `json:"songs"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Room is the aggregate owned by exactly one Actor. Nothing outside the
// actor's command loop mutates it.
type Room struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"ownerId"`
	Visibility Visibility `json:"visibility"`
	JoinCode   string     `json:"joinCode"`
	CreatedAt  time.Time  `json:"createdAt"`

	Participants map[string]*Participant `json:"participants"`
	Queue        []QueueEntry            `json:"queue"`
	Playback     PlaybackState           `json:"playback"`
	Chat         []ChatMessage           `json:"chat"`

	// Revision increases by exactly one per applied command. Rejected
	// commands never advance it.
	Revision uint64 `json:"revision"`
}

func NewRoom(owner Identity, name string, visibility Visibility, joinCode string) *Room {
	return &Room{
		ID:           uuid.New(),
		Name:         name,
		OwnerID:      owner.UserID,
		Visibility:   visibility,
		JoinCode:     joinCode,
		CreatedAt:    time.Now(),
		Participants: make(map[string]*Participant),
		Queue:        make([]QueueEntry, 0),
		Playback:     PlaybackState{Status: StatusIdle, UpdatedAt: time.Now()},
		Chat:         make([]ChatMessage, 0),
	}
}

// Roster returns the participants ordered by join time, earliest first.
// Ties on the join instant break by user id so ownership transfer stays
// deterministic.
func (r *Room) Roster() []Participant {
	roster := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		roster = append(roster, *p)
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].JoinedAt.Equal(roster[j].JoinedAt) {
			return roster[i].UserID < roster[j].UserID
		}
		return roster[i].JoinedAt.Before(roster[j].JoinedAt)
	})

	return roster
}

// RoomInfo is the directory view of a room, read through the actor so it is
// always consistent with the room's current revision.
type RoomInfo struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	OwnerID      string        `json:"ownerId"`
	Visibility   Visibility    `json:"visibility"`
	JoinCode     string        `json:"joinCode,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	Revision     uint64        `json:"revision"`
	Participants int           `json:"participants"`
	Current      *SongMetadata `json:"current,omitempty"`
	EmptySince   *time.Time    `json:"-"`
}

type Limits struct {
	MaxParticipants int
	MaxQueue        int
	ChatHistory     int
	MaxChatLength   int
	ReconnectGrace  time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxParticipants: 50,
		MaxQueue:        500,
		ChatHistory:     200,
		MaxChatLength:   1000,
		ReconnectGrace:  30 * time.Second,
	}
}
