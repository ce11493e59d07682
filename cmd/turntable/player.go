package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/app"
	"github.com/jscyril/golang_turntable/internal/audio"
	"github.com/jscyril/golang_turntable/internal/auth"
	"github.com/jscyril/golang_turntable/internal/config"
	"github.com/jscyril/golang_turntable/internal/library"
	"github.com/jscyril/golang_turntable/internal/logging"
	"github.com/jscyril/golang_turntable/internal/mode"
	"github.com/jscyril/golang_turntable/internal/playlist"
	"github.com/jscyril/golang_turntable/internal/spotify"
	"github.com/jscyril/golang_turntable/internal/tonearm"
	"github.com/jscyril/golang_turntable/internal/ui"
	"github.com/jscyril/golang_turntable/internal/visualizer"
	"github.com/jscyril/golang_turntable/pkg/events"
)

// remote is the streaming side of the player, present only when a
// session and a playback device are available
type remote struct {
	backend   *spotify.Backend
	playlists *playlist.Manager
}

func run(ctx context.Context, cmd *cli.Command, forceLogin bool) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Bool("local") {
		cfg.Mode = api.ModeLocal.String()
	}

	logger, closer, err := logging.NewFileLogger(logging.Options{
		Path:       cfg.LogPath(),
		Level:      cfg.Log.Level,
		Debug:      cmd.Bool("debug"),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()
	logger.Info("starting", "mode", cfg.Mode, "data_dir", cfg.DataDir)

	bus := events.NewEventBus()
	defer bus.Close()
	display := ui.NewDisplay()

	session := auth.NewSession(auth.NewMemoryStorage())
	if err := signIn(ctx, cfg, session, forceLogin, logging.Component(logger, "auth")); err != nil {
		if forceLogin {
			return fmt.Errorf("login: %w", err)
		}
		logger.Warn("spotify sign-in failed", "err", err)
	}

	local := library.NewLibrary(logging.Component(logger, "library"))
	dirs := append(append([]string(nil), cfg.Library.Directories...), cmd.StringSlice("dir")...)
	if len(dirs) > 0 {
		if _, err := local.Load(ctx, dirs...); err != nil {
			logger.Warn("could not load local music", "err", err)
		}
	}

	engine := audio.NewEngine(bus, audio.NewSpeakerOutput(), logging.Component(logger, "audio"))
	engine.Start(ctx)
	defer engine.Close()

	rem := connectRemote(ctx, cfg, bus, session, logging.Component(logger, "spotify"))
	start := cfg.StartMode()
	if rem == nil {
		if start == api.ModeRemote {
			display.Alert("Spotify is unavailable, playing local files. Run `turntable login` to sign in.")
		}
		start = api.ModeLocal
	} else {
		defer rem.backend.Close()
	}

	modes := mode.NewCoordinator(start, bus, logging.Component(logger, "mode"))
	modes.Register(api.ModeLocal, engine, local)
	var manager *playlist.Manager
	if rem != nil {
		modes.Register(api.ModeRemote, rem.backend, rem.playlists.Queue())
		manager = rem.playlists
	}

	loop := ui.NewLoop()
	arm := tonearm.New(cfg.Geometry, bus, tonearm.NewTimerScheduler(loop.Dispatch),
		tonearm.WithSettleDelay(cfg.Turntable.SettleDelay),
		tonearm.WithLogger(logging.Component(logger, "tonearm")),
	)
	viz := visualizer.New(cfg.Turntable.VisualizerBars)

	ctrl := app.New(arm, modes, viz, display, bus,
		app.WithAuthExpired(session.Logout),
		app.WithVolume(cfg.Player.DefaultVolume),
		app.WithLogger(logging.Component(logger, "app")),
	)
	defer ctrl.Close()

	svc := ui.Services{
		Controller: ctrl,
		Arm:        arm,
		Visualizer: viz,
		Bus:        bus,
		Display:    display,
		Playlists:  manager,
		Library:    local,
		Logger:     logging.Component(logger, "ui"),
	}
	if rem != nil {
		svc.Logout = session.Logout
	}

	settings := ui.DefaultSettings()
	settings.RPM = cfg.Turntable.RPM
	settings.ProgressPeriod = cfg.Player.ProgressPeriod
	if len(dirs) > 0 {
		settings.MusicDir = dirs[0]
	}

	err = ui.Run(ctx, loop, svc, settings)
	logger.Info("stopped", "err", err)
	return err
}

// signIn stores a token from the configuration, or runs the browser
// login when credentials exist and no token is configured
func signIn(ctx context.Context, cfg *config.Config, session *auth.Session, force bool, logger *log.Logger) error {
	if cfg.Spotify.AccessToken != "" && !force {
		session.Save(cfg.Spotify.AccessToken, time.Now().Add(time.Hour))
		return nil
	}
	if !cfg.HasSpotifyCredentials() {
		if force {
			return errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
		}
		return nil
	}
	if cfg.StartMode() == api.ModeLocal && !force {
		return nil
	}

	oauthCfg := auth.NewOAuthConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL)
	open := func(url string) error {
		fmt.Printf("Sign in to Spotify in your browser:\n\n  %s\n\n", url)
		return auth.OpenBrowser(url)
	}

	loginCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()
	return auth.Login(loginCtx, oauthCfg, session, open, logger)
}

// connectRemote returns nil when the session is missing or no playback
// device can be found
func connectRemote(ctx context.Context, cfg *config.Config, bus *events.EventBus, session *auth.Session, logger *log.Logger) *remote {
	if !session.IsAuthenticated() {
		return nil
	}

	client := spotify.NewClient(session,
		spotify.WithRateLimit(cfg.Spotify.RateLimit, 1),
		spotify.WithUnauthorized(session.Logout),
	)
	backend := spotify.NewBackend(client, bus,
		spotify.WithDeviceName(cfg.Spotify.DeviceName),
		spotify.WithPollInterval(cfg.Player.PollInterval),
		spotify.WithLogger(logger),
	)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := backend.Init(initCtx); err != nil {
		logger.Error("spotify init failed", "err", err)
		return nil
	}

	manager := playlist.NewManager(client, playlist.NewQueue(), cfg.Turntable.MaxTracks, logger)
	if _, err := manager.LoadByID(initCtx, cfg.Turntable.DefaultPlaylistID); err != nil {
		logger.Warn("could not load default playlist", "id", cfg.Turntable.DefaultPlaylistID, "err", err)
	}
	backend.Start(ctx)

	return &remote{backend: backend, playlists: manager}
}
