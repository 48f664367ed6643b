// Package app wires the bot, the session runtime and the web surface into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/teamfinder/internal/bot"
	"github.com/DoyleJ11/teamfinder/internal/config"
	"github.com/DoyleJ11/teamfinder/internal/dispatch"
	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/httpapi"
	"github.com/DoyleJ11/teamfinder/internal/hub"
	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/monitor"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/internal/store"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	log     *zap.Logger
	store   *store.Store
	feed    *feed.Broadcaster
	hub     *hub.Hub
	monitor *monitor.Monitor
	bot     *bot.Bot
	http    *http.Server
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := notice.NewLocalizer(cfg.Locale)
	if err != nil {
		return nil, err
	}
	pages, err := httpapi.LoadPages()
	if err != nil {
		return nil, err
	}
	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database.URL, log.Named("store"))
	if err != nil {
		return nil, err
	}

	renderer := render.New(loc)
	profiles := profile.NewRegistry(st)
	codec := types.NewCodec(cfg.SessionSecret)
	client := bot.NewClient(session, codec)
	fd := feed.NewBroadcaster(context.Background())

	h := hub.NewHub(context.Background(), lobby.Deps{
		Store:    st,
		Profiles: profiles,
		Sink:     dispatch.NewRefresher(profiles, client, renderer),
		Feed:     fd,
		Log:      log.Named("lobby"),
	})

	d := dispatch.New(dispatch.Options{
		Registry: h,
		Records:  st,
		Profiles: profiles,
		Chat:     client,
		Renderer: renderer,
		Feed:     fd,
		Log:      log.Named("dispatch"),
	})

	mon := monitor.New(st, cfg.KeepAliveInterval, log)

	site := httpapi.Site{Service: cfg.ServiceName, InviteURL: cfg.InviteURL()}
	for _, name := range bot.CommandNames() {
		site.Commands = append(site.Commands, httpapi.CommandInfo{Name: name, Description: loc.T(notice.HelpCommand(name))})
	}

	return &App{
		log:     log,
		store:   st,
		feed:    fd,
		hub:     h,
		monitor: mon,
		bot: bot.New(bot.Options{
			Session:    session,
			Client:     client,
			Dispatcher: d,
			Profiles:   profiles,
			Records:    st,
			Renderer:   renderer,
			Codec:      codec,
			GuildID:    cfg.GuildID,
			Log:        log,
		}),
		http: &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.SetupRoutes(httpapi.Deps{
				Site:    site,
				Pages:   pages,
				Monitor: mon,
				Feed:    fd,
				Log:     log.Named("http"),
			}),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves until ctx is done or one of the bot and web server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	if err := a.monitor.Start(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.bot.Run(ctx)
	})
	g.Go(func() error {
		a.log.Info("listening", zap.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close stops live sessions and releases the database. Durable records of sessions
// still recruiting stay active.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	a.log.Info("stopping live sessions", zap.Int("count", a.hub.Len(ctx)))
	cancel()
	a.hub.Shutdown()
	a.feed.Close()
	return multierr.Combine(a.monitor.Stop(), a.store.Close())
}
