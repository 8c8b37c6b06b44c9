package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/room-sync/internal/auth"
	httpmw "github.com/cwrk-planet/room-sync/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler   *Handler
	Validator auth.Validator

	// опциональные
	WS             http.HandlerFunc
	Metrics        http.Handler
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmw.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httpmw.Logging)
	r.Use(middlewareChi.Recoverer)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{httpmw.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WS авторизуется сам (токен в query), до upgrade
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(d.Validator))
		pr.Use(middlewareChi.Timeout(timeout))

		pr.Route("/api/sync/rooms/{roomId}", func(rr chi.Router) {
			rr.Get("/updates", d.Handler.GetRoomUpdates)
			rr.Post("/playback", d.Handler.UpdatePlayback)
			rr.Post("/messages", d.Handler.SendMessage)
			rr.Post("/join", d.Handler.JoinRoom)
			rr.Post("/leave", d.Handler.LeaveRoom)
		})
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
