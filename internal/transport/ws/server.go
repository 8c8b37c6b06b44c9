package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cwrk-planet/room-sync/internal/auth"
	"github.com/cwrk-planet/room-sync/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Options struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	AllowedOrigins []string // пусто = любой Origin
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
	return o
}

type Server struct {
	upgrader  websocket.Upgrader
	hub       *Hub
	validator auth.Validator
	opts      Options
}

func NewServer(hub *Hub, validator auth.Validator, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		hub:       hub,
		validator: validator,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

// WS endpoint: GET /ws?access_token=... (или Authorization: Bearer ...)
// Токен проверяется до upgrade; без него соединение не создаётся.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	userID, err := s.validator.Validate(r.Context(), token)
	if err != nil {
		slog.Debug("ws auth failed", "err", err, "remote", r.RemoteAddr)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет ответ с ошибкой
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(uuid.NewString(), userID, conn, s.opts)
	l := logger.FromContext(r.Context()).With(logger.Conn(c.id), logger.User(userID))
	ctx := logger.WithContext(r.Context(), l)
	s.hub.Register(c)

	go c.writeLoop(s.opts.PingInterval)
	s.readLoop(ctx, c)

	s.hub.Unregister(context.WithoutCancel(ctx), c)
	if err := c.Close(); err != nil {
		l.Debug("ws close failed", "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingInterval))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.FromContext(ctx).Warn("ws read error", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingInterval))
		s.hub.Handle(ctx, c, data)
	}
}

func tokenFromRequest(r *http.Request) string {
	q := r.URL.Query()
	for _, k := range []string{"access_token", "token"} {
		if t := strings.TrimSpace(q.Get(k)); t != "" {
			return t
		}
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
