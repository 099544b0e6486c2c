package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoshinonyaruko/snake-desktop/api"
	"github.com/hoshinonyaruko/snake-desktop/config"
	"github.com/hoshinonyaruko/snake-desktop/loop"
	"github.com/hoshinonyaruko/snake-desktop/memimg"
	"github.com/hoshinonyaruko/snake-desktop/metrics"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/snake"
	"github.com/hoshinonyaruko/snake-desktop/terminal"
	"github.com/hoshinonyaruko/snake-desktop/window"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const terminalLogFile = "snake-terminal.log"

// game bundles what every surface needs.
type game struct {
	cfg     *config.AppConfig
	store   *memimg.Store
	raster  *render.Rasterizer
	state   *snake.GameState
	metrics *metrics.Collector
	layout  render.Layout
	policy  loop.Policy
}

func run(surface string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if surface == "" {
		surface = config.GetConfigValue("surface").(string)
	}
	if port != "" {
		cfg.Port = port
	}
	if err := setupLogging(cfg, surface); err != nil {
		return err
	}

	// 载入图片，缺图直接退出
	store, err := memimg.Load(cfg.AssetDir)
	if err != nil {
		return errors.Wrap(err, "loading sprites")
	}
	raster, err := render.NewRasterizer()
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &game{
		cfg:     cfg,
		store:   store,
		raster:  raster,
		state:   snake.New(rand.New(rand.NewSource(seed)), snake.WithGridSize(cfg.GridSize), snake.WithFoodAvoidingSnake(cfg.FoodAvoidSnake)),
		metrics: metrics.New(),
		layout:  render.Layout{TileSize: cfg.TileSize, GridSize: cfg.GridSize},
		policy:  loop.Exit,
	}
	if cfg.OnGameOver == config.GameOverRestart {
		g.policy = loop.Restart
	}
	g.state.Subscribe(g.metrics.Observe)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 检测并热更新到内存
	if cfg.WatchAssets {
		go func() {
			if err := store.Watch(ctx, nil); err != nil {
				log.WithError(err).Warn("asset watcher stopped")
			}
		}()
	}

	log.WithFields(log.Fields{
		"surface":      surface,
		"grid_size":    cfg.GridSize,
		"tile_size":    cfg.TileSize,
		"tick_millis":  cfg.TickMillis,
		"on_game_over": cfg.OnGameOver,
		"seed":         seed,
	}).Info("starting")

	switch surface {
	case config.SurfaceWindow:
		return g.runWindow(ctx, cancel)
	case config.SurfaceTerminal:
		return g.runTerminal(ctx, cancel)
	case config.SurfaceHTTP:
		return g.runHTTP(ctx, cancel)
	}
	return errors.Errorf("unknown surface %q", surface)
}

func (g *game) interval() time.Duration {
	return time.Duration(g.cfg.TickMillis) * time.Millisecond
}

func (g *game) runWindow(ctx context.Context, cancel context.CancelFunc) error {
	w := window.New("Snake", g.layout, g.raster, g.store, g.store.Icons())
	d := loop.New(g.state, w, g.layout, g.interval(), g.policy)
	w.Bind(d)

	driverErr := make(chan error, 1)
	go func() {
		driverErr <- d.Run(ctx)
		w.Close()
	}()

	// ebiten 要在主协程里跑
	err := w.Run(ctx)
	cancel()
	if derr := <-driverErr; derr != nil {
		return derr
	}
	return err
}

func (g *game) runTerminal(ctx context.Context, cancel context.CancelFunc) error {
	screen, err := terminal.NewScreen()
	if err != nil {
		return err
	}
	t := terminal.New(screen, cancel)
	d := loop.New(g.state, t, g.layout, g.interval(), g.policy)
	t.Bind(d)

	termDone := make(chan error, 1)
	go func() { termDone <- t.Run(ctx) }()

	err = d.Run(ctx)
	cancel()
	<-termDone
	if err == nil {
		log.WithField("score", g.state.Score()).Info("game finished")
	}
	return err
}

func (g *game) runHTTP(ctx context.Context, cancel context.CancelFunc) error {
	s := api.New(g.raster, g.store, api.Options{
		InputRPS: g.cfg.InputRPS,
		Metrics:  g.metrics.Handler(),
	})
	d := loop.New(g.state, s, g.layout, g.interval(), g.policy)
	s.Bind(d)

	serveErr := make(chan error, 1)
	go func() {
		err := s.Run(ctx, ":"+config.GetConfigValue("port").(string))
		if err != nil {
			// 端口起不来，游戏也没必要继续
			cancel()
		}
		serveErr <- err
	}()

	err := d.Run(ctx)
	cancel()
	if serr := <-serveErr; serr != nil && err == nil {
		err = serr
	}
	return err
}

func setupLogging(cfg *config.AppConfig, surface string) error {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// tcell owns the terminal, logs go to a file
	if surface == config.SurfaceTerminal {
		f, err := os.OpenFile(terminalLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrapf(err, "open %s", terminalLogFile)
		}
		log.SetOutput(f)
	}
	return nil
}
