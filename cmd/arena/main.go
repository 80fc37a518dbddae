package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brawler/internal/api"
	"brawler/internal/arena"
	"brawler/internal/config"
	"brawler/internal/game"

	"github.com/joho/godotenv"
)

// movesetDebounce collapses the several writes editors make per save.
const movesetDebounce = 250 * time.Millisecond

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  BRAWLER - COMBAT ARENA")
	log.Println("🎮 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	moveset := game.DefaultMoveset()
	if path := appConfig.Paths.Moveset; path != "" {
		if moveset, err = game.LoadMoveset(path); err != nil {
			log.Fatalf("❌ Moveset: %v", err)
		}
		log.Printf("📜 Moveset %s: %v", path, moveset.Names())
	}

	layout := arena.DefaultLayout()
	if path := appConfig.Paths.Arena; path != "" {
		if layout, err = arena.LoadLayout(path); err != nil {
			log.Fatalf("❌ Arena: %v", err)
		}
	}
	world := arena.New(layout)

	hooks := game.NewHookQueue(appConfig.Sim.HookQueue)
	engine, err := game.NewEngine(game.EngineConfig{
		Sim:     appConfig.Sim,
		Combat:  appConfig.Combat,
		Moveset: moveset,
		World:   world,
		Hooks:   game.MultiHooks{hooks, api.NewMetricsHooks()},
		Limits:  game.SnapshotLimits{MaxCharacters: appConfig.Sim.MaxCharacters},
		OnTick:  api.RecordTick,
	})
	if err != nil {
		log.Fatalf("❌ Engine: %v", err)
	}
	log.Printf("🛡️ Resource limits: %d characters, %d queued commands",
		appConfig.Sim.MaxCharacters, appConfig.Sim.CommandQueue)

	for _, s := range layout.Spawns {
		if _, err := engine.Spawn(s.Options()); err != nil {
			log.Printf("⚠️ Spawn %s skipped: %v", s.Name, err)
		}
	}

	// Start event log
	if path := appConfig.Paths.EventLog; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	if err := api.StartDebugServer(appConfig.Observability); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	var watcher *config.Watcher
	if appConfig.Paths.WatchMoveset && appConfig.Paths.Moveset != "" {
		watcher, err = config.NewWatcher(movesetDebounce, appConfig.Paths.Moveset)
		if err != nil {
			log.Printf("⚠️ Moveset hot reload disabled: %v", err)
		} else {
			go reloadMovesets(watcher, engine)
		}
	}

	server := api.NewServer(engine, hooks, appConfig.Server)

	engine.Start()
	log.Println("✅ Combat engine started")

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	if watcher != nil {
		watcher.Close()
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}

// reloadMovesets swaps in the moveset file every time it changes. A file
// that fails to parse leaves the running moveset in place.
func reloadMovesets(w *config.Watcher, engine *game.Engine) {
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			m, err := game.LoadMoveset(path)
			if err != nil {
				log.Printf("⚠️ Moveset reload rejected: %v", err)
				continue
			}
			if err := engine.ReplaceMoveset(m); err != nil {
				log.Printf("⚠️ Moveset reload incomplete: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Moveset watcher: %v", err)
		}
	}
}
