package domain

import "github.com/google/uuid"

// Command is one mutation request for a room. Commands are applied strictly
// one at a time by the owning actor; ordering across participants is decided
// solely by arrival order at the actor's mailbox.
type Command interface {
	isCommand()
}

type Join struct {
	Identity  Identity
	Messenger Messenger
}

type Leave struct {
	UserID string
}

// Disconnect marks a dropped transport. The participant stays in the room in
// a reconnecting state until the grace period elapses, at which point the
// actor issues a system Leave. Messenger pins the report to the connection
// that dropped: a teardown from a connection that was already superseded by a
// newer one must not touch the live session.
type Disconnect struct {
	UserID    string
	Messenger Messenger
}

type EnqueueSong struct {
	UserID string
	Song   SongMetadata
}

type RemoveFromQueue struct {
	UserID  string
	EntryID uuid.UUID
}

type PlayPause struct {
	UserID  string
	Playing bool
}

type Seek struct {
	UserID     string
	PositionMs int64
}

type Next struct {
	UserID string
}

// SongEnded is system-originated: either a client reported the media ended or
// the actor's own timer estimated it. EntryID pins the report to the entry it
// believes ended, so stale reports reduce to no-ops.
type SongEnded struct {
	EntryID uuid.UUID
}

type SendChat struct {
	UserID  string
	Content string
}

type SavePlaylist struct {
	UserID string
	Name   string
}

// RequestSnapshot re-sends a full snapshot to one participant, used when a
// client detects a revision gap in its delta stream.
type RequestSnapshot struct {
	UserID string
}

func (Join) isCommand()            {}
func (Leave) isCommand()           {}
func (Disconnect) isCommand()      {}
func (EnqueueSong) isCommand()     {}
func (RemoveFromQueue) isCommand() {}
func (PlayPause) isCommand()       {}
func (Seek) isCommand()            {}
func (Next) isCommand()            {}
func (SongEnded) isCommand()       {}
func (SendChat) isCommand()        {}
func (SavePlaylist) isCommand()    {}
func (RequestSnapshot) isCommand() {}
