package transport

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"chatWs/internal/modules/realtime/domain"
)

const announceKeyHeader = "X-API-Key"

// AnnounceResponse represents the response after an announcement was fanned out.
type AnnounceResponse struct {
	Success   bool `json:"success"`
	Attempted int  `json:"attempted"`
	Delivered int  `json:"delivered"`
}

// announce pushes a notification to connected clients over REST, the same way the
// announcements topic does from Kafka. Without a configured key the endpoint refuses everyone.
func (h *Handler) announce(c echo.Context) error {
	if h.apiKey == "" {
		slog.Warn("announce http: rejected, no api key configured", slog.String("ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "announcements disabled")
	}
	given := c.Request().Header.Get(announceKeyHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.apiKey)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}

	var req domain.Announcement
	if err := c.Bind(&req); err != nil {
		slog.Warn("announce http: invalid request body", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	report, err := h.announcements.Announce(c.Request().Context(), req)
	if err != nil {
		info := h.errors.Map(err)
		return echo.NewHTTPError(info.Status, info.Message)
	}

	slog.Info("announce http: notification sent",
		slog.String("scope", req.Scope),
		slog.Int("attempted", report.Attempted),
		slog.Int("delivered", report.Delivered),
	)
	return c.JSON(http.StatusOK, AnnounceResponse{Success: true, Attempted: report.Attempted, Delivered: report.Delivered})
}
