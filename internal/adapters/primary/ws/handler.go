package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/messenger"
	"github.com/arthurdotwork/karaoke/internal/adapters/secondary/registry"
	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Handler runs one websocket session per participant: it admits the
// connection as a Join, pumps inbound frames into commands, and marks the
// transport dropped when the read side dies.
type Handler struct {
	router   *domain.Router
	registry *registry.Registry
	upgrader websocket.Upgrader
}

func NewHandler(router *domain.Router, reg *registry.Registry) *Handler {
	return &Handler{
		router:   router,
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/rooms/:id/ws", h.Session)
}

func (h *Handler) Session(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}

	// Identity is resolved and verified upstream; the engine only consumes it.
	identity := domain.Identity{
		UserID:      c.QueryParam("userId"),
		DisplayName: c.QueryParam("userName"),
		AvatarURL:   c.QueryParam("userImage"),
	}
	if identity.UserID == "" || identity.DisplayName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing identity")
	}

	conn, err := h.upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "upgrader.Upgrade", "error", err)
		return err
	}

	ctx := c.Request().Context()
	m := messenger.NewMessenger(conn)

	// Register before joining: any delta emitted after the join snapshot is
	// delivered, and the client drops everything at or below the snapshot's
	// revision.
	h.registry.Register(ctx, roomID, identity.UserID, m)
	defer h.registry.Unregister(context.WithoutCancel(ctx), roomID, identity.UserID, m)
	defer m.Close()

	if _, err := h.router.Join(ctx, roomID, identity, c.QueryParam("joinCode"), m); err != nil {
		slog.DebugContext(ctx, "join rejected", "error", err, "room_id", roomID, "user_id", identity.UserID)
		_ = m.SendError(ctx, domain.ErrorCode(err), "unable to join room")
		return nil
	}

	left := h.readPump(ctx, conn, roomID, identity.UserID, m)

	if !left {
		// the transport dropped without an explicit leave; the actor keeps
		// the participant in reconnecting state until the grace expires
		if _, err := h.router.Dispatch(context.WithoutCancel(ctx), roomID, domain.Disconnect{UserID: identity.UserID, Messenger: m}); err != nil {
			slog.DebugContext(ctx, "router.Dispatch disconnect", "error", err, "room_id", roomID, "user_id", identity.UserID)
		}
	}

	return nil
}

// readPump reads frames until the connection dies or the participant leaves
// explicitly. It reports whether an explicit leave happened.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, roomID uuid.UUID, userID string, m *messenger.Messenger) bool {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false
		}

		var frame protocol.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = m.SendError(ctx, domain.ErrorCode(domain.ErrInvalidMessage), "malformed frame")
			continue
		}

		cmd, err := protocol.ParseCommand(frame, userID)
		if err != nil {
			_ = m.SendError(ctx, domain.ErrorCode(err), err.Error())
			continue
		}

		if _, err := h.router.Dispatch(ctx, roomID, cmd); err != nil {
			// failures go to the issuing participant only
			_ = m.SendError(ctx, domain.ErrorCode(err), err.Error())
			continue
		}

		if frame.Type == protocol.TypeLeave {
			return true
		}
	}
}
