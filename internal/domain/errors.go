package domain

import "errors"

var (
	ErrRoomFull         = errors.New("room is at capacity")
	ErrQueueFull        = errors.New("queue is at capacity")
	ErrForbidden        = errors.New("not allowed")
	ErrNoCurrentSong    = errors.New("no current song")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidCode      = errors.New("invalid join code")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// ErrorCode maps a command failure to the stable code surfaced on the wire.
// Unknown errors map to "internal" so transport-level faults never leak.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNoCurrentSong):
		return "no_current_song"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrPlaylistNotFound):
		return "playlist_not_found"
	default:
		return "internal"
	}
}
