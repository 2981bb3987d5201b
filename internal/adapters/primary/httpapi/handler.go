package httpapi

import (
	"errors"
	"net/http"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
)

// Handler exposes the room lifecycle that happens before a websocket exists:
// creating a room and discovering one to join.
type Handler struct {
	router *domain.Router
}

func NewHandler(router *domain.Router) *Handler {
	return &Handler{router: router}
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/rooms", h.CreateRoom)
	e.GET("/rooms", h.ListRooms)
	e.GET("/rooms/code/:code", h.RoomByCode)
	e.GET("/healthz", h.Health)
}

type createRoomRequest struct {
	Name           string          `json:"name"`
	Visibility     string          `json:"visibility"`
	Owner          domain.Identity `json:"owner"`
	SeedPlaylistID string          `json:"seedPlaylistId,omitempty"`
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, domain.ErrInvalidMessage)
	}

	params := domain.CreateRoomParams{
		Owner:      req.Owner,
		Name:       req.Name,
		Visibility: domain.Visibility(req.Visibility),
	}

	if req.SeedPlaylistID != "" {
		id, err := uuid.Parse(req.SeedPlaylistID)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, domain.ErrInvalidMessage)
		}
		params.SeedPlaylistID = &id
	}

	snapshot, err := h.router.CreateRoom(c.Request().Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMessage):
			return jsonError(c, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrPlaylistNotFound):
			return jsonError(c, http.StatusNotFound, err)
		default:
			return jsonError(c, http.StatusInternalServerError, err)
		}
	}

	return c.JSON(http.StatusCreated, snapshot)
}

func (h *Handler) ListRooms(c echo.Context) error {
	rooms, err := h.router.Rooms(c.Request().Context())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *Handler) RoomByCode(c echo.Context) error {
	info, err := h.router.ByJoinCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}

		return jsonError(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func jsonError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{
		"error":   domain.ErrorCode(err),
		"message": err.Error(),
	})
}
