package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Actor is the sole writer of one room's state. Every command goes through
// its mailbox and is applied by a single goroutine, so no two commands for
// the same room ever execute concurrently. That serialization is the whole
// consistency model: races like two participants pressing "next" at once
// collapse into two ordered commands, the second of which sees the state the
// first one left behind.
type Actor struct {
	room        *Room
	limits      Limits
	broadcaster Broadcaster
	archiver    Archiver

	mailbox chan envelope
	done    chan struct{}

	messengers  map[string]Messenger
	graceTimers map[string]*time.Timer
	songTimer   *time.Timer
	emptySince  time.Time

	// ownerVacant is set when the owner departs an emptied room, so the
	// next joiner inherits ownership. It is never set at creation: the
	// creator owns the room before their connection arrives.
	ownerVacant bool
}

type envelope struct {
	cmd   Command
	reply chan result
}

type result struct {
	val any
	err error
}

// internal commands, never issued by a transport
type graceExpired struct{ userID string }
type infoQuery struct{}

func (graceExpired) isCommand() {}
func (infoQuery) isCommand()    {}

func NewActor(room *Room, limits Limits, broadcaster Broadcaster, archiver Archiver) *Actor {
	return &Actor{
		room:        room,
		limits:      limits,
		broadcaster: broadcaster,
		archiver:    archiver,
		mailbox:     make(chan envelope, 64),
		done:        make(chan struct{}),
		messengers:  make(map[string]Messenger),
		graceTimers: make(map[string]*time.Timer),
		emptySince:  time.Now(),
	}
}

// Run processes the mailbox until ctx is cancelled. On the way out it
// snapshots the room to the archiver so the queue survives the room.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			a.shutdown(context.WithoutCancel(ctx))
			return nil
		case env := <-a.mailbox:
			val, err := a.apply(ctx, env.cmd)
			if env.reply != nil {
				env.reply <- result{val: val, err: err}
			}
		}
	}
}

func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Immutable after creation, safe to read from any goroutine.
func (a *Actor) ID() uuid.UUID          { return a.room.ID }
func (a *Actor) Visibility() Visibility { return a.room.Visibility }
func (a *Actor) JoinCode() string       { return a.room.JoinCode }

// Dispatch applies one command and returns the delta it produced, or the
// typed failure for the issuing participant only. A nil event with a nil
// error means the command was absorbed without mutating state.
func (a *Actor) Dispatch(ctx context.Context, cmd Command) (*Event, error) {
	val, err := a.do(ctx, cmd)
	if err != nil {
		return nil, err
	}

	event, _ := val.(*Event)
	return event, nil
}

// Join adds or reactivates the participant and returns the snapshot the
// connection must receive before its delta stream.
func (a *Actor) Join(ctx context.Context, identity Identity, messenger Messenger) (Snapshot, error) {
	val, err := a.do(ctx, Join{Identity: identity, Messenger: messenger})
	if err != nil {
		return Snapshot{}, err
	}

	return val.(Snapshot), nil
}

func (a *Actor) Info(ctx context.Context) (RoomInfo, error) {
	val, err := a.do(ctx, infoQuery{})
	if err != nil {
		return RoomInfo{}, err
	}

	return val.(RoomInfo), nil
}

func (a *Actor) do(ctx context.Context, cmd Command) (any, error) {
	env := envelope{cmd: cmd, reply: make(chan result, 1)}

	select {
	case a.mailbox <- env:
	case <-a.done:
		return nil, ErrRoomNotFound
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-env.reply:
		return res.val, res.err
	case <-a.done:
		return nil, ErrRoomNotFound
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// system enqueues a command that originates from the actor's own timers.
func (a *Actor) system(cmd Command) {
	select {
	case a.mailbox <- envelope{cmd: cmd}:
	case <-a.done:
	}
}

func (a *Actor) apply(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case Join:
		return a.applyJoin(ctx, c)
	case Leave:
		return a.applyLeave(ctx, c.UserID)
	case Disconnect:
		return a.applyDisconnect(ctx, c)
	case graceExpired:
		return a.applyGraceExpired(ctx, c)
	case EnqueueSong:
		return a.applyEnqueue(ctx, c)
	case RemoveFromQueue:
		return a.applyRemove(ctx, c)
	case PlayPause:
		return a.applyPlayPause(ctx, c)
	case Seek:
		return a.applySeek(ctx, c)
	case Next:
		return a.applyNext(ctx, c)
	case SongEnded:
		return a.applySongEnded(ctx, c)
	case SendChat:
		return a.applySendChat(ctx, c)
	case SavePlaylist:
		return a.applySavePlaylist(ctx, c)
	case RequestSnapshot:
		return a.applyRequestSnapshot(ctx, c)
	case infoQuery:
		return a.applyInfo(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown command %T", ErrInvalidMessage, cmd)
	}
}

func (a *Actor) applyJoin(ctx context.Context, cmd Join) (any, error) {
	userID := cmd.Identity.UserID

	existing, ok := a.room.Participants[userID]
	if !ok && len(a.room.Participants) >= a.limits.MaxParticipants {
		return nil, ErrRoomFull
	}

	if ok {
		// A new connection for the same user supersedes the prior one.
		existing.Identity = cmd.Identity
		existing.Connection = ConnectionConnected
		a.cancelGrace(userID)
	} else {
		a.room.Participants[userID] = &Participant{
			Identity:   cmd.Identity,
			JoinedAt:   time.Now(),
			Connection: ConnectionConnected,
		}
	}

	if a.ownerVacant {
		a.room.OwnerID = userID
		a.ownerVacant = false
	}

	a.messengers[userID] = cmd.Messenger
	a.emptySince = time.Time{}

	a.room.Revision++
	a.publish(ctx, Event{
		Type:         EventParticipantJoined,
		RoomID:       a.room.ID,
		Revision:     a.room.Revision,
		ActorID:      userID,
		OwnerID:      a.room.OwnerID,
		Participants: a.room.Roster(),
	})

	snapshot := a.room.Snapshot()
	if cmd.Messenger != nil {
		if err := cmd.Messenger.SendSnapshot(ctx, snapshot); err != nil {
			slog.ErrorContext(ctx, "messenger.SendSnapshot", "error", err, "room_id", a.room.ID, "user_id", userID)
		}
	}

	return snapshot, nil
}

func (a *Actor) applyLeave(ctx context.Context, userID string) (any, error) {
	if _, ok := a.room.Participants[userID]; !ok {
		return (*Event)(nil), nil
	}

	delete(a.room.Participants, userID)
	delete(a.messengers, userID)
	a.cancelGrace(userID)

	if userID == a.room.OwnerID {
		if roster := a.room.Roster(); len(roster) > 0 {
			// ownership transfers to the earliest-joined remaining participant
			a.room.OwnerID = roster[0].UserID
		} else {
			a.ownerVacant = true
		}
	}

	if len(a.room.Participants) == 0 {
		a.emptySince = time.Now()
	}

	a.room.Revision++
	event := Event{
		Type:         EventParticipantLeft,
		RoomID:       a.room.ID,
		Revision:     a.room.Revision,
		ActorID:      userID,
		OwnerID:      a.room.OwnerID,
		Participants: a.room.Roster(),
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applyDisconnect(_ context.Context, cmd Disconnect) (any, error) {
	p, ok := a.room.Participants[cmd.UserID]
	if !ok {
		return (*Event)(nil), nil
	}

	// only the connection that currently serves the participant may report
	// its own drop; a superseded connection's teardown is stale
	if current, ok := a.messengers[cmd.UserID]; !ok || current != cmd.Messenger {
		return (*Event)(nil), nil
	}

	p.Connection = ConnectionReconnecting
	delete(a.messengers, cmd.UserID)

	a.cancelGrace(cmd.UserID)
	userID := cmd.UserID
	a.graceTimers[userID] = time.AfterFunc(a.limits.ReconnectGrace, func() {
		a.system(graceExpired{userID: userID})
	})

	// transport-level state only: no revision bump, no delta
	return (*Event)(nil), nil
}

func (a *Actor) applyGraceExpired(ctx context.Context, cmd graceExpired) (any, error) {
	p, ok := a.room.Participants[cmd.userID]
	if !ok || p.Connection != ConnectionReconnecting {
		return (*Event)(nil), nil
	}

	return a.applyLeave(ctx, cmd.userID)
}

func (a *Actor) applyEnqueue(ctx context.Context, cmd EnqueueSong) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	if cmd.Song.Title == "" || cmd.Song.MediaID == "" || cmd.Song.DurationMs <= 0 {
		return nil, fmt.Errorf("%w: incomplete song metadata", ErrInvalidMessage)
	}

	if len(a.room.Queue) >= a.limits.MaxQueue {
		return nil, ErrQueueFull
	}

	// Re-queueing the song that is playing right now would re-trigger it
	// immediately; duplicates anywhere else in the queue are fine.
	if len(a.room.Queue) == 0 && a.room.Playback.Current != nil && a.room.Playback.Current.Song.MediaID == cmd.Song.MediaID {
		return nil, fmt.Errorf("%w: song is currently playing", ErrInvalidMessage)
	}

	a.room.Queue = append(a.room.Queue, QueueEntry{
		ID:      uuid.New(),
		Song:    cmd.Song,
		AddedBy: cmd.UserID,
		AddedAt: time.Now(),
	})

	a.room.Revision++
	event := Event{
		Type:     EventQueueUpdated,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  cmd.UserID,
		Queue:    a.queueCopy(),
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applyRemove(ctx context.Context, cmd RemoveFromQueue) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	idx := -1
	for i, entry := range a.room.Queue {
		if entry.ID == cmd.EntryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: unknown queue entry", ErrInvalidMessage)
	}

	if a.room.Queue[idx].AddedBy != cmd.UserID && a.room.OwnerID != cmd.UserID {
		return nil, ErrForbidden
	}

	a.room.Queue = append(a.room.Queue[:idx], a.room.Queue[idx+1:]...)

	a.room.Revision++
	event := Event{
		Type:     EventQueueUpdated,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  cmd.UserID,
		Queue:    a.queueCopy(),
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applyPlayPause(ctx context.Context, cmd PlayPause) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	if a.room.Playback.Current == nil {
		return nil, ErrNoCurrentSong
	}

	now := time.Now()
	a.extrapolatePosition(now)

	if cmd.Playing {
		a.room.Playback.Status = StatusPlaying
		a.scheduleSongEnd()
	} else {
		a.room.Playback.Status = StatusPaused
		a.stopSongEnd()
	}
	a.room.Playback.UpdatedAt = now

	a.room.Revision++
	event := Event{
		Type:     EventPlaybackChanged,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  cmd.UserID,
		Playback: a.playbackCopy(),
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applySeek(ctx context.Context, cmd Seek) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	current := a.room.Playback.Current
	if current == nil {
		return nil, ErrNoCurrentSong
	}

	position := cmd.PositionMs
	if position < 0 {
		position = 0
	}
	if position > current.Song.DurationMs {
		position = current.Song.DurationMs
	}

	a.room.Playback.PositionMs = position
	a.room.Playback.UpdatedAt = time.Now()
	if a.room.Playback.Status == StatusPlaying {
		a.scheduleSongEnd()
	}

	a.room.Revision++
	event := Event{
		Type:     EventPlaybackChanged,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  cmd.UserID,
		Playback: a.playbackCopy(),
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applyNext(ctx context.Context, cmd Next) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	if a.room.Playback.Current == nil && len(a.room.Queue) == 0 {
		return nil, ErrNoCurrentSong
	}

	event := a.advance(cmd.UserID)
	a.publish(ctx, *event)

	return event, nil
}

func (a *Actor) applySongEnded(ctx context.Context, cmd SongEnded) (any, error) {
	current := a.room.Playback.Current
	if current == nil || current.ID != cmd.EntryID {
		// a stale report: the song it refers to already advanced
		return (*Event)(nil), nil
	}

	event := a.advance("system")
	a.publish(ctx, *event)

	return event, nil
}

// advance pops the queue head into the current slot, or parks the room in
// idle when nothing is queued. Idle is re-enterable: the next EnqueueSong
// plus Next starts playback again.
func (a *Actor) advance(actorID string) *Event {
	now := time.Now()

	if len(a.room.Queue) > 0 {
		head := a.room.Queue[0]
		a.room.Queue = a.room.Queue[1:]
		a.room.Playback = PlaybackState{
			Current:    &head,
			Status:     StatusPlaying,
			PositionMs: 0,
			UpdatedAt:  now,
		}
		a.scheduleSongEnd()
	} else {
		a.room.Playback = PlaybackState{
			Current:    nil,
			Status:     StatusIdle,
			PositionMs: 0,
			UpdatedAt:  now,
		}
		a.stopSongEnd()
	}

	a.room.Revision++
	return &Event{
		Type:     EventPlaybackChanged,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  actorID,
		Playback: a.playbackCopy(),
		Queue:    a.queueCopy(),
	}
}

func (a *Actor) applySendChat(ctx context.Context, cmd SendChat) (any, error) {
	sender, err := a.participant(cmd.UserID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(content) > a.limits.MaxChatLength {
		return nil, fmt.Errorf("%w: message too long", ErrInvalidMessage)
	}

	message := ChatMessage{
		ID:         uuid.New(),
		SenderID:   sender.UserID,
		SenderName: sender.DisplayName,
		Content:    content,
		CreatedAt:  time.Now(),
	}

	a.room.Chat = append(a.room.Chat, message)
	if len(a.room.Chat) > a.limits.ChatHistory {
		a.room.Chat = a.room.Chat[len(a.room.Chat)-a.limits.ChatHistory:]
	}

	a.room.Revision++
	event := Event{
		Type:     EventChatMessage,
		RoomID:   a.room.ID,
		Revision: a.room.Revision,
		ActorID:  cmd.UserID,
		Message:  &message,
	}
	a.publish(ctx, event)

	return &event, nil
}

func (a *Actor) applySavePlaylist(ctx context.Context, cmd SavePlaylist) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	if cmd.UserID != a.room.OwnerID {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty playlist name", ErrInvalidMessage)
	}

	songs := make([]SongMetadata, 0, len(a.room.Queue)+1)
	if a.room.Playback.Current != nil {
		songs = append(songs, a.room.Playback.Current.Song)
	}
	for _, entry := range a.room.Queue {
		songs = append(songs, entry.Song)
	}

	playlist := Playlist{
		ID:        uuid.New(),
		OwnerID:   cmd.UserID,
		Name:      name,
		Songs:     songs,
		CreatedAt: time.Now(),
	}

	if err := a.archiver.SavePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("archiver.SavePlaylist: %w", err)
	}

	// pure export: the room state is untouched, so no revision, no delta
	return (*Event)(nil), nil
}

func (a *Actor) applyRequestSnapshot(ctx context.Context, cmd RequestSnapshot) (any, error) {
	if _, err := a.participant(cmd.UserID); err != nil {
		return nil, err
	}

	messenger, ok := a.messengers[cmd.UserID]
	if !ok {
		return nil, fmt.Errorf("%w: no active connection", ErrForbidden)
	}

	if err := messenger.SendSnapshot(ctx, a.room.Snapshot()); err != nil {
		return nil, fmt.Errorf("messenger.SendSnapshot: %w", err)
	}

	return (*Event)(nil), nil
}

func (a *Actor) applyInfo(_ context.Context) (any, error) {
	info := RoomInfo{
		ID:           a.room.ID,
		Name:         a.room.Name,
		OwnerID:      a.room.OwnerID,
		Visibility:   a.room.Visibility,
		JoinCode:     a.room.JoinCode,
		CreatedAt:    a.room.CreatedAt,
		Revision:     a.room.Revision,
		Participants: len(a.room.Participants),
	}

	if a.room.Playback.Current != nil {
		song := a.room.Playback.Current.Song
		info.Current = &song
	}

	if !a.emptySince.IsZero() {
		emptySince := a.emptySince
		info.EmptySince = &emptySince
	}

	return info, nil
}

func (a *Actor) participant(userID string) (*Participant, error) {
	p, ok := a.room.Participants[userID]
	if !ok {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}

	return p, nil
}

func (a *Actor) publish(ctx context.Context, event Event) {
	if err := a.broadcaster.Broadcast(ctx, event); err != nil {
		slog.ErrorContext(ctx, "broadcaster.Broadcast", "error", err, "room_id", a.room.ID, "revision", event.Revision)
	}
}

// extrapolatePosition folds the wall-clock time spent playing since the last
// anchor into PositionMs, clamped to the song duration.
func (a *Actor) extrapolatePosition(now time.Time) {
	current := a.room.Playback.Current
	if current == nil || a.room.Playback.Status != StatusPlaying {
		return
	}

	position := a.room.Playback.PositionMs + now.Sub(a.room.Playback.UpdatedAt).Milliseconds()
	if position > current.Song.DurationMs {
		position = current.Song.DurationMs
	}
	a.room.Playback.PositionMs = position
}

// scheduleSongEnd arms the server-side end-of-song estimate for the current
// entry. A client-reported SongEnded for the same entry simply wins the race;
// whichever lands second is a no-op.
func (a *Actor) scheduleSongEnd() {
	a.stopSongEnd()

	current := a.room.Playback.Current
	if current == nil {
		return
	}

	remaining := time.Duration(current.Song.DurationMs-a.room.Playback.PositionMs) * time.Millisecond
	if remaining < 0 {
		remaining = 0
	}

	entryID := current.ID
	a.songTimer = time.AfterFunc(remaining, func() {
		a.system(SongEnded{EntryID: entryID})
	})
}

func (a *Actor) stopSongEnd() {
	if a.songTimer != nil {
		a.songTimer.Stop()
		a.songTimer = nil
	}
}

func (a *Actor) cancelGrace(userID string) {
	if t, ok := a.graceTimers[userID]; ok {
		t.Stop()
		delete(a.graceTimers, userID)
	}
}

func (a *Actor) queueCopy() []QueueEntry {
	queue := make([]QueueEntry, len(a.room.Queue))
	copy(queue, a.room.Queue)
	return queue
}

func (a *Actor) playbackCopy() *PlaybackState {
	playback := a.room.Playback
	if playback.Current != nil {
		current := *playback.Current
		playback.Current = &current
	}
	return &playback
}

func (a *Actor) shutdown(ctx context.Context) {
	a.stopSongEnd()
	for userID := range a.graceTimers {
		a.cancelGrace(userID)
	}

	if err := a.archiver.SaveSnapshot(ctx, a.room.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "archiver.SaveSnapshot", "error", err, "room_id", a.room.ID)
	}
}
