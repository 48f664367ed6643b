package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/ws"
)

type Deps struct {
	Site    Site
	Pages   Pages
	Monitor StatusSource
	Feed    *feed.Broadcaster
	Log     *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/", Page(d.Pages, "index", d.Site, d.Log))
	r.Get("/commands", Page(d.Pages, "commands", d.Site, d.Log))
	r.Get("/about", Page(d.Pages, "about", d.Site, d.Log))
	r.Get("/add-bot", Page(d.Pages, "add_bot", d.Site, d.Log))
	r.Get("/status", Status(d.Monitor, d.Site.Service))
	r.Get("/healthz", Healthz(d.Monitor))
	r.Get("/ws/feed", ws.Handler(d.Feed, d.Log))
	return r
}
