package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"chatWs/internal/modules/realtime/application/handler"
	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/application/usecase"
	"chatWs/internal/modules/realtime/domain"
	"chatWs/internal/modules/realtime/infrastructure"
	"chatWs/internal/shared/auth"
	"chatWs/internal/shared/httputil"
)

const authTimeout = 10 * time.Second

var errInvalidRoomID = errors.New("invalid room id")

// Dependencies wires the use cases behind the HTTP surface.
type Dependencies struct {
	Chat           *usecase.ChatUseCase
	Lifecycle      *usecase.Lifecycle
	Authenticator  *usecase.Authenticator
	Announcements  *handler.AnnouncementHandler
	Client         infrastructure.ClientConfig
	AllowedOrigins []string
	AnnounceAPIKey string
}

// Handler serves the websocket endpoints and the small REST surface around them.
type Handler struct {
	chat          *usecase.ChatUseCase
	lifecycle     *usecase.Lifecycle
	authenticator *usecase.Authenticator
	announcements *handler.AnnouncementHandler
	clientCfg     infrastructure.ClientConfig
	upgrader      websocket.Upgrader
	errors        *httputil.ErrorMapper
	clients       *clientSet
	apiKey        string

	mu       sync.Mutex
	draining bool
	sessions sync.WaitGroup
}

func NewHandler(deps Dependencies) *Handler {
	origins := make([]string, 0, len(deps.AllowedOrigins))
	for _, o := range deps.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return &Handler{
		chat:          deps.Chat,
		lifecycle:     deps.Lifecycle,
		authenticator: deps.Authenticator,
		announcements: deps.Announcements,
		clientCfg:     deps.Client,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
		errors: httputil.NewErrorMapper().
			WithMapping(auth.ErrMissingToken, http.StatusBadRequest, "missing token").
			WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
			WithMapping(usecase.ErrUserInactive, http.StatusForbidden, "user not found or inactive").
			WithMapping(errInvalidRoomID, http.StatusBadRequest, "invalid room id").
			WithMapping(port.ErrRoomNotFound, http.StatusNotFound, "room not found").
			WithMapping(handler.ErrInvalidAnnouncement, http.StatusBadRequest, "invalid announcement").
			WithDefault(http.StatusInternalServerError, "unable to connect"),
		clients: newClientSet(),
		apiKey:  strings.TrimSpace(deps.AnnounceAPIKey),
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.root)
	e.GET("/healthz", h.health)
	e.GET("/ws", h.serveAnonymous)
	e.GET("/ws/auth", h.serveAuthenticated)
	e.GET("/ws/room/:room_id", h.serveRoom)
	e.GET("/connections", h.connections)
	e.GET("/api/rooms/:room_id/messages", h.roomMessages)
	if h.announcements != nil {
		e.POST("/api/announcements", h.announce)
	}
}

// Shutdown refuses new upgrades, closes every live websocket and waits until each session
// has run its disconnect path, or until ctx is done.
func (h *Handler) Shutdown(ctx context.Context) (int, error) {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	closed := h.clients.closeAll()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return closed, nil
	case <-ctx.Done():
		return closed, fmt.Errorf("wait for websocket sessions: %w", ctx.Err())
	}
}

func (h *Handler) beginSession() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.sessions.Add(1)
	return true
}

func (h *Handler) isDraining() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.draining
}

func (h *Handler) serveAnonymous(c echo.Context) error {
	return h.serve(c, usecase.OpenRequest{Mode: usecase.ModeAnonymous})
}

func (h *Handler) serveAuthenticated(c echo.Context) error {
	who, err := h.authenticate(c)
	if err != nil {
		return h.reject(c, err)
	}
	return h.serve(c, usecase.OpenRequest{Mode: usecase.ModeAuthenticated, Identity: who})
}

// serveRoom rejects unknown rooms before upgrading, then pins the connection to the room.
func (h *Handler) serveRoom(c echo.Context) error {
	room, err := parseRoomID(c.Param("room_id"))
	if err != nil {
		return h.reject(c, err)
	}
	who, err := h.authenticate(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	_, err = h.chat.PrepareRoom(ctx, who, room)
	cancel()
	if err != nil {
		return h.reject(c, err)
	}
	return h.serve(c, usecase.OpenRequest{Mode: usecase.ModeRoom, Identity: who, Room: room})
}

func (h *Handler) authenticate(c echo.Context) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()
	return h.authenticator.Authenticate(ctx, auth.ExtractToken(c.Request(), auth.DefaultTokenParam))
}

func (h *Handler) reject(c echo.Context, err error) error {
	info := h.errors.Map(err)
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if info.Status >= http.StatusInternalServerError {
		slog.Error("ws connect failed", slog.String("path", c.Path()), slog.String("ip", c.RealIP()), slog.String("reqID", requestID), slog.Any("error", err))
	} else {
		slog.Warn("ws connect rejected", slog.String("path", c.Path()), slog.Int("status", info.Status), slog.String("ip", c.RealIP()), slog.String("reqID", requestID), slog.Any("error", err))
	}
	return echo.NewHTTPError(info.Status, info.Message)
}

// serve upgrades the request and runs the session read loop until the peer goes away.
func (h *Handler) serve(c echo.Context, req usecase.OpenRequest) error {
	if !h.beginSession() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server shutting down")
	}
	defer h.sessions.Done()

	var client *infrastructure.Client
	accept := func() (port.ConnectionHandle, error) {
		conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil, err
		}
		client = infrastructure.NewClient(conn, h.clientCfg)
		return client, nil
	}

	// The session outlives the request context once the connection is hijacked.
	ctx := context.WithoutCancel(c.Request().Context())
	session, err := h.chat.Open(ctx, accept, req)
	if err != nil {
		// The upgrader has already answered the HTTP request.
		slog.Error("ws upgrade failed", slog.String("path", c.Path()), slog.String("ip", c.RealIP()), slog.Any("error", err))
		return nil
	}

	h.clients.add(client)
	client.AddCloseHook(h.clients.remove)
	if !client.Alive() {
		h.clients.remove(client)
	}
	// Shutdown may have snapshotted the client set before this socket was added.
	if h.isDraining() {
		client.Close()
	}

	go client.WritePump()
	client.ReadPump(func(frame []byte) {
		session.Handle(ctx, frame)
	})
	session.Close(ctx)
	return nil
}

func parseRoomID(raw string) (domain.RoomID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return domain.NoRoom, errInvalidRoomID
	}
	return domain.RoomID(id), nil
}
