package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"chatWs/internal/modules/realtime/domain"
)

// ConnectionsResponse is the registry snapshot served on /connections.
type ConnectionsResponse struct {
	TotalConnections  int                   `json:"total_connections"`
	ActiveConnections int                   `json:"active_connections"`
	ConnectionsByRoom map[domain.RoomID]int `json:"connections_by_room"`
}

func (h *Handler) connections(c echo.Context) error {
	counts := h.lifecycle.Snapshot()
	return c.JSON(http.StatusOK, ConnectionsResponse{
		TotalConnections:  counts.TotalEver,
		ActiveConnections: counts.Active,
		ConnectionsByRoom: counts.PerRoom,
	})
}

func (h *Handler) roomMessages(c echo.Context) error {
	room, err := parseRoomID(c.Param("room_id"))
	if err != nil {
		info := h.errors.Map(err)
		return echo.NewHTTPError(info.Status, info.Message)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	history, err := h.chat.History(ctx, room)
	if err != nil {
		info := h.errors.Map(err)
		return echo.NewHTTPError(info.Status, info.Message)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message":             "chatWs realtime chat service",
		"websocket_endpoints": []string{"/ws", "/ws/auth", "/ws/room/{room_id}"},
		"live_sockets":        h.clients.len(),
	})
}
