// cmd/collab-server/main.go
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-sync/config"
	"collab-sync/internal/database"
	"collab-sync/internal/editor"
)

func main() {
	// Command line flags
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		port       = flag.String("port", "", "Server port (overrides config)")
		env        = flag.String("env", "dev", "Environment (dev, prod)")
		useDB      = flag.Bool("use-db", true, "Enable database persistence")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, *env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	log.Printf("Starting collab server on port %s (env: %s)", cfg.Port, cfg.Env)

	// Initialize database connection (optional)
	var db *database.DB
	if *useDB && cfg.Database.Enabled {
		db, err = database.New(cfg.Database.Host, cfg.Database.Port,
			cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running without persistence - documents will be lost on restart")
		} else {
			log.Println("Database connection established")
		}
	} else {
		log.Println("Running in memory-only mode (no persistence)")
	}

	// Create service configuration
	svcCfg := &editor.Config{
		MaxMessageSize:   cfg.Service.MaxMessageSize,
		WriteTimeout:     time.Duration(cfg.Service.WriteTimeout) * time.Second,
		ReadTimeout:      time.Duration(cfg.Service.ReadTimeout) * time.Second,
		PingInterval:     time.Duration(cfg.Service.PingInterval) * time.Second,
		MaxClients:       cfg.Service.MaxClients,
		AutoSaveInterval: time.Duration(cfg.Service.AutoSaveInterval) * time.Second,
		PresenceTimeout:  time.Duration(cfg.Service.PresenceTimeout) * time.Second,
	}

	// Create service with database (can be nil)
	service := editor.NewService(svcCfg, db)

	if err := service.Start(); err != nil {
		log.Fatalf("Failed to start service: %v", err)
	}

	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", service.HandleWebSocket)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics endpoint
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics := service.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		service.Shutdown()
		server.Close()
	}()

	log.Printf("Server running at http://localhost:%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
