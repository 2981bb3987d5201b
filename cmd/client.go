package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// Client is a terminal participant, mostly useful for poking at a running
// server: it joins (or creates) a room, prints the event stream, and turns
// stdin lines into chat or slash commands.
func Client(ctx context.Context, _ *cobra.Command) error {
	server := env("KARAOKE_SERVER", "localhost:8080")

	prompt := promptui.Prompt{Label: "Display name"}
	name, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt.Run: %w", err)
	}

	userID := uuid.NewString()

	roomPrompt := promptui.Prompt{Label: "Room ID (empty to create one)"}
	roomID, err := roomPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt.Run: %w", err)
	}

	if strings.TrimSpace(roomID) == "" {
		roomID, err = createRoom(ctx, server, userID, name)
		if err != nil {
			return fmt.Errorf("createRoom: %w", err)
		}

		fmt.Printf("created room %s\n", roomID)
	}

	u := url.URL{
		Scheme: "ws",
		Host:   server,
		Path:   "/rooms/" + roomID + "/ws",
		RawQuery: url.Values{
			"userId":   {userID},
			"userName": {name},
		}.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket.Dial: %w", err)
	}
	defer conn.Close()

	sink := make(chan error, 1)

	go receiveFrames(conn, sink)
	go readInput(conn)

	select {
	case <-ctx.Done():
		return nil
	case err := <-sink:
		if err != nil {
			return fmt.Errorf("receiveFrames: %w", err)
		}

		return nil
	}
}

func createRoom(ctx context.Context, server, userID, name string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"name":       fmt.Sprintf("%s's room", name),
		"visibility": "public",
		"owner": domain.Identity{
			UserID:      userID,
			DisplayName: name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+server+"/rooms", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var snapshot domain.Snapshot
	if err := json.NewDecoder(res.Body).Decode(&snapshot); err != nil {
		return "", fmt.Errorf("json.Decode: %w", err)
	}

	return snapshot.RoomID.String(), nil
}

type serverFrame struct {
	Type     string          `json:"type"`
	Revision uint64          `json:"revision"`
	Payload  json.RawMessage `json:"payload"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
}

func receiveFrames(conn *websocket.Conn, sink chan error) {
	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			sink <- nil
			return
		}

		switch frame.Type {
		case protocol.TypeServerClosing:
			fmt.Println("server is closing")
			sink <- nil
			return
		case protocol.TypeError:
			fmt.Printf("error [%s]: %s\n", frame.Code, frame.Message)
		case protocol.TypeSnapshot:
			var snapshot domain.Snapshot
			if err := json.Unmarshal(frame.Payload, &snapshot); err != nil {
				sink <- fmt.Errorf("json.Unmarshal: %w", err)
				return
			}

			fmt.Printf("-- %s (rev %d, %d in room, %d queued)\n", snapshot.Name, snapshot.Revision, len(snapshot.Participants), len(snapshot.Queue))
		case protocol.TypeDelta:
			var event domain.Event
			if err := json.Unmarshal(frame.Payload, &event); err != nil {
				sink <- fmt.Errorf("json.Unmarshal: %w", err)
				return
			}

			printEvent(event)
		}
	}
}

func printEvent(event domain.Event) {
	switch event.Type {
	case domain.EventChatMessage:
		fmt.Printf("%s: %s\n", event.Message.SenderName, event.Message.Content)
	case domain.EventParticipantJoined:
		fmt.Printf("* %s joined (%d in room)\n", event.ActorID, len(event.Participants))
	case domain.EventParticipantLeft:
		fmt.Printf("* %s left (%d in room)\n", event.ActorID, len(event.Participants))
	case domain.EventQueueUpdated:
		fmt.Printf("* queue updated (%d entries)\n", len(event.Queue))
	case domain.EventPlaybackChanged:
		if event.Playback != nil && event.Playback.Current != nil {
			fmt.Printf("* now %s: %s\n", event.Playback.Status, event.Playback.Current.Song.Title)
		} else if event.Playback != nil {
			fmt.Printf("* playback %s\n", event.Playback.Status)
		}
	}
}

func readInput(conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, ok := inputFrame(line)
		if !ok {
			continue
		}

		if err := conn.WriteJSON(frame); err != nil {
			return
		}

		if frame.Type == protocol.TypeLeave {
			return
		}
	}
}

func inputFrame(line string) (protocol.ClientFrame, bool) {
	if !strings.HasPrefix(line, "/") {
		return commandFrame(protocol.TypeSendChat, protocol.SendChatPayload{Content: line}), true
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/play":
		return commandFrame(protocol.TypePlayPause, protocol.PlayPausePayload{Playing: true}), true
	case "/pause":
		return commandFrame(protocol.TypePlayPause, protocol.PlayPausePayload{Playing: false}), true
	case "/next":
		return protocol.ClientFrame{Type: protocol.TypeNext}, true
	case "/seek":
		if len(fields) < 2 {
			fmt.Println("usage: /seek <position-ms>")
			return protocol.ClientFrame{}, false
		}
		position, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("usage: /seek <position-ms>")
			return protocol.ClientFrame{}, false
		}
		return commandFrame(protocol.TypeSeek, protocol.SeekPayload{PositionMs: position}), true
	case "/add":
		if len(fields) < 3 {
			fmt.Println("usage: /add <media-id> <title>")
			return protocol.ClientFrame{}, false
		}
		return commandFrame(protocol.TypeEnqueueSong, protocol.EnqueueSongPayload{
			Song: domain.SongMetadata{
				Title:      strings.Join(fields[2:], " "),
				MediaID:    fields[1],
				DurationMs: (3 * time.Minute).Milliseconds(),
			},
		}), true
	case "/save":
		if len(fields) < 2 {
			fmt.Println("usage: /save <playlist-name>")
			return protocol.ClientFrame{}, false
		}
		return commandFrame(protocol.TypeSavePlaylist, protocol.SavePlaylistPayload{Name: strings.Join(fields[1:], " ")}), true
	case "/sync":
		return protocol.ClientFrame{Type: protocol.TypeSync}, true
	case "/quit":
		return protocol.ClientFrame{Type: protocol.TypeLeave}, true
	default:
		fmt.Println("commands: /play /pause /next /seek /add /save /sync /quit")
		return protocol.ClientFrame{}, false
	}
}

func commandFrame(frameType string, payload any) protocol.ClientFrame {
	b, err := json.Marshal(payload)
	if err != nil {
		return protocol.ClientFrame{Type: frameType}
	}

	return protocol.ClientFrame{Type: frameType, Payload: b}
}

func env(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
