package http

import (
	"net/http"

	"bulletbot/internal/bullet"
	"bulletbot/internal/chat"
	"bulletbot/internal/config"
	"bulletbot/internal/deliver"
	"bulletbot/internal/digest"
	"bulletbot/internal/http/handler"
	mw "bulletbot/internal/http/middleware"
	"bulletbot/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Bullets *bullet.Service
	Chat    *chat.Router
	Digest  *digest.Compiler
	Sink    deliver.Sink
	Log     logging.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLog(d.Log))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	bh := &handler.BulletHandler{Svc: d.Bullets, Chat: d.Chat, Log: d.Log}
	r.Route("/users/{nick}", func(r chi.Router) {
		r.Post("/bullets", bh.Create)
		r.Get("/bullets", bh.List)
		r.Post("/bullets/delete", bh.Delete)
		r.Put("/name", bh.Register)
		r.Post("/messages", bh.Message)
	})

	rh := &handler.RecipientHandler{Svc: d.Bullets, Log: d.Log}
	r.Route("/recipients", func(r chi.Router) {
		r.Get("/", rh.List)
		r.Post("/", rh.Add)
		r.Delete("/", rh.Remove)
	})

	dh := &handler.DigestHandler{Compiler: d.Digest, Sink: d.Sink, Log: d.Log}
	r.Route("/digest", func(r chi.Router) {
		r.Get("/", dh.Preview)
		r.Get("/unsent", dh.Unsent)
		r.Post("/send", dh.Send)
		r.Post("/mark-sent", dh.MarkSent)
	})

	return r
}
