// Command dungeonsim runs one simulation session: it loads content,
// bootstraps a GameState, starts the runtime worker, and serves the
// HTTP/WS surface until interrupted.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/bus"
	"github.com/0xwonj/dungeon-sim/internal/game/handler"
	"github.com/0xwonj/dungeon-sim/internal/game/persistence"
	"github.com/0xwonj/dungeon-sim/internal/game/provider"
	"github.com/0xwonj/dungeon-sim/internal/game/runtime"
	"github.com/0xwonj/dungeon-sim/internal/game/session"
	"github.com/0xwonj/dungeon-sim/internal/game/transport"
	"github.com/0xwonj/dungeon-sim/internal/game/zkvm"
	"github.com/0xwonj/dungeon-sim/pkg/config"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	printConfig := flag.Bool("print-config", false, "print the effective configuration as YAML and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			panic("marshal config: " + err.Error())
		}
		os.Stdout.Write(out)
		return
	}

	log := logger.New(cfg.Logging).WithComponent("dungeonsim")
	log.WithField("session_id", cfg.SessionID).Info("starting session")

	boot, err := session.Load(cfg.ContentDir)
	if err != nil {
		log.WithError(err).Fatal("bootstrap session content")
	}

	var store *persistence.Store
	if cfg.EnablePersistence {
		store, err = persistence.Open(filepath.Join(cfg.SaveDataDir, "session_"+cfg.SessionID), log.WithComponent("persistence"))
		if err != nil {
			log.WithError(err).Fatal("open persistence store")
		}
	}

	var prover zkvm.Prover
	if cfg.EnableZKProving {
		switch cfg.ProverBackend {
		case "stub", "":
			prover = zkvm.NewStubProver()
		default:
			log.WithField("backend", cfg.ProverBackend).Fatal("unsupported prover backend")
		}
	}

	handlers := handler.NewRegistry(cfg.MaxHookDepth, log.WithComponent("handler"))
	for _, h := range handler.DefaultHandlers() {
		handlers.Register(h)
	}

	eventBus := bus.New(256, log.WithComponent("bus"))
	env := action.Env{Oracles: boot.Oracles}

	worker := runtime.New(
		runtime.Config{
			EnablePersistence:  cfg.EnablePersistence,
			EnableZKProving:    cfg.EnableZKProving,
			CheckpointInterval: cfg.CheckpointInterval,
		},
		boot.State,
		env,
		handlers,
		store,
		prover,
		eventBus,
		log.WithComponent("runtime"),
	)

	scripted := provider.NewScriptedProvider(boot.Oracles.Map.InitialEntities(), boot.Oracles.Npcs, log.WithComponent("provider"))
	for _, spec := range boot.Oracles.Map.InitialEntities() {
		if spec.Template != "" {
			worker.SetProvider(spec.ID, scripted)
		}
	}

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.HTTPAddr
	}
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	srv := transport.NewServer(worker, store, eventBus, log.WithComponent("transport"))
	httpServer := &http.Server{Addr: listenAddr, Handler: srv}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		log.WithField("addr", listenAddr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	<-groupCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs *multierror.Error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = multierror.Append(errs, err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := group.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if errs.ErrorOrNil() != nil {
		log.WithError(errs).Error("shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
