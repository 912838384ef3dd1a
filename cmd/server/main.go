package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"color-snake/internal/api"
	"color-snake/internal/config"
	"color-snake/internal/game"
	"color-snake/internal/input"
)

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

	appConfig := config.Load()
	setupLogging(appConfig.Server.LogLevel)

	log.Println("🐍 ================================")
	log.Println("🐍  COLOR SNAKE - GO ENGINE")
	log.Println("🐍 ================================")

	gameCfg := appConfig.Game
	if err := gameCfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid game configuration: %v", err)
	}
	log.Printf("🎮 Config: %dx%d grid, %v per tick, %d foods, palette %v",
		gameCfg.GridWidth, gameCfg.GridHeight, gameCfg.TickInterval, gameCfg.FoodCount, gameCfg.Colors)

	engine, err := game.NewEngine(gameCfg, nil)
	if err != nil {
		log.Fatalf("❌ Failed to create engine: %v", err)
	}

	// Start event log
	if appConfig.EventLog.Enabled {
		if err := engine.StartEventLog(appConfig.EventLog.Path); err != nil {
			log.Warnf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
		}
	}

	// Metrics follow every event and snapshot
	engine.OnEvent(api.RecordEvent)
	engine.OnPublish(api.RecordSnapshot)

	if err := api.StartDebugServer(appConfig.Observability); err != nil {
		log.Warnf("⚠️ Debug server disabled: %v", err)
	}

	// Input: HTTP commands run synchronously, socket commands go through the queue
	inputHandler := input.NewHandler(engine, input.RateLimitConfig{
		MaxPerWindow:   appConfig.Input.MaxPerWindow,
		WindowDuration: appConfig.Input.WindowDuration,
	})
	commandQueue := input.NewCommandQueue(inputHandler, appConfig.Input.QueueSize)
	commandQueue.OnResult = func(cmd input.Command, res input.Result) {
		if !res.Accepted {
			log.WithFields(log.Fields{
				"command": res.Command,
				"source":  cmd.Source,
				"reason":  res.Reason,
			}).Debug("🚫 Command rejected")
		}
	}
	commandQueue.Start()

	server := api.NewServer(api.ServerDeps{
		Engine:      engine,
		Input:       inputHandler,
		Queue:       commandQueue,
		CORSOrigins: appConfig.Server.CORSOrigins,
	})

	statsDone := make(chan struct{})
	go sampleStats(engine, statsDone)

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(appConfig.Server.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Println("")
	log.Println("📋 Controls: POST /api/start, /api/pause, /api/restart,")
	log.Println("   POST /api/input/key {\"key\":\"ArrowUp\"}, or send the same over /ws")
	log.Println("")

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Warnf("⚠️ HTTP shutdown: %v", err)
	}
	close(statsDone)
	commandQueue.Stop()
	inputHandler.Close()
	engine.Close()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}

// setupLogging applies LOG_LEVEL; unknown levels fall back to info
func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// sampleStats feeds engine counters into the metrics once a second
func sampleStats(engine *game.Engine, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			api.RecordEngineStats(engine.Stats())
			stats := engine.GetEventLogStats()
			total, _ := stats["total"].(uint64)
			dropped, _ := stats["dropped"].(uint64)
			api.UpdateEventLogStats(total, dropped)
		}
	}
}
