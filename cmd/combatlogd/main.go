// Command combatlogd tails a live combat log, runs every line through
// the parse -> process -> signal pipeline, and serves the result to
// connected overlay clients over WebSocket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/cliout"
	"github.com/baras-go/combatlog/internal/config"
	"github.com/baras-go/combatlog/internal/effects"
	"github.com/baras-go/combatlog/internal/logparser"
	"github.com/baras-go/combatlog/internal/overlay"
	"github.com/baras-go/combatlog/internal/platform/logger"
	"github.com/baras-go/combatlog/internal/platform/metrics"
	"github.com/baras-go/combatlog/internal/processor"
	"github.com/baras-go/combatlog/internal/reader"
	"github.com/baras-go/combatlog/internal/session"
	"github.com/baras-go/combatlog/internal/sessionstore"
	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/timers"
)

func main() {
	configDir := flag.String("config-dir", "", "directory holding baras.yaml")
	bundledDefs := flag.String("bundled-definitions", "definitions/bundled", "directory of bundled boss/effect/timer/challenge YAML")
	trace := flag.Bool("trace", false, "also print a live CLI trace alongside the overlay")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "combatlogd:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)
	defer log.Sync()

	defs, err := config.LoadDefinitions(*bundledDefs, cfg.DefinitionsDir)
	if err != nil {
		log.Error("loading definitions", logger.Err(err))
		os.Exit(1)
	}

	store, err := sessionstore.Open(cfg.SessionStorePath)
	if err != nil {
		log.Error("opening session store", logger.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	bossSet := boss.NewSet(defs.Bosses)

	effectDefs := effects.NewDefinitionSet()
	if dups := effectDefs.AddDefinitions(defs.Effects, false); len(dups) > 0 {
		log.Warn("duplicate effect definitions ignored", logger.Int("count", len(dups)))
	}
	effectTracker := effects.NewTracker(effectDefs)
	effectTracker.SetLiveMode(true)

	timerMgr := timers.NewManager()
	timerMgr.LoadDefinitions(defs.Timers)
	timerMgr.SetLiveMode(true)

	overlayHub := overlay.NewHub(log)
	go overlayHub.Run()

	bus := signalbus.NewBus()
	bus.Register(effectTracker)
	bus.Register(timerMgr)
	bus.Register(overlayHub)

	if *trace {
		bus.Register(cliout.New(os.Stdout, cliout.Normal))
	}

	path, ok, err := reader.NewestCombatLog(cfg.LogDirectory)
	if err != nil {
		log.Error("scanning log directory", logger.Err(err))
		os.Exit(1)
	}
	if !ok {
		log.Error("no combat_*.txt files found", logger.String("directory", cfg.LogDirectory))
		os.Exit(1)
	}

	sessions := &sessionSupervisor{bossSet: bossSet, bus: bus, log: log}
	sessions.switchTo(path)
	defer sessions.stopCurrent()

	watcher, err := reader.NewWatcher(cfg.LogDirectory)
	if err != nil {
		log.Warn("directory watch unavailable, auto-rotation disabled", logger.Err(err))
	} else {
		defer watcher.Close()
		watchStop := make(chan struct{})
		defer close(watchStop)
		go watcher.Run(func(newPath string) {
			log.Info("new log file detected, switching", logger.String("path", newPath))
			sessions.switchTo(newPath)
		}, func(err error) {
			log.Warn("directory watch error", logger.Err(err))
		}, watchStop)
	}

	mux := http.NewServeMux()
	mux.Handle("/overlay", overlayHub)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/metrics/prometheus", metrics.PrometheusHandler())
	mux.Handle("/session/window/", windowPositionHandler(store, log))

	httpServer := &http.Server{Addr: cfg.OverlayAddr, Handler: mux}
	go func() {
		log.Info("overlay http server listening", logger.String("addr", cfg.OverlayAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("overlay http server failed", logger.Err(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// sessionSupervisor owns the currently tailed file. switchTo stops the
// previous file's historical-load+tail goroutine (if any) and starts a
// fresh one, with a new session.Cache and logparser.Parser, the way
// the game client starts a new combat log per play session.
type sessionSupervisor struct {
	bossSet *boss.Set
	bus     *signalbus.Bus
	log     *logger.Logger

	mu   sync.Mutex
	stop chan struct{}
}

func (s *sessionSupervisor) switchTo(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop

	go s.run(path, stop)
}

func (s *sessionSupervisor) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *sessionSupervisor) run(path string, stop chan struct{}) {
	s.log.Info("loading log file", logger.String("path", path))

	cache := session.New()
	parser := logparser.New(time.Now())
	proc := processor.New(cache, s.bossSet, s.bus)

	result, err := reader.ReadAll(path, parser, proc.Process)
	if err != nil {
		s.log.Error("reading historical log", logger.String("path", path), logger.Err(err))
		return
	}
	s.log.Info("historical load complete",
		logger.String("path", path), logger.Int("events", result.EventsParsed), logger.Int("skipped", result.LinesSkipped))

	if err := reader.Tail(path, result.EndOffset, parser, proc.Process, stop); err != nil {
		s.log.Warn("tail stopped with error", logger.String("path", path), logger.Err(err))
	}
}

// windowPositionHandler persists and restores overlay window geometry
// under /session/window/{windowID}: GET returns the last saved
// position, POST saves a new one.
func windowPositionHandler(store *sessionstore.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowID := strings.TrimPrefix(r.URL.Path, "/session/window/")
		if windowID == "" {
			http.Error(w, "missing window id", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			pos, ok, err := store.WindowPosition(windowID)
			if err != nil {
				log.Error("loading window position", logger.Err(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(pos)

		case http.MethodPost:
			var pos sessionstore.WindowPosition
			if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			pos.WindowID = windowID
			if err := store.SaveWindowPosition(pos); err != nil {
				log.Error("saving window position", logger.Err(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
