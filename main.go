package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"vector-store/api"
	"vector-store/config"
	"vector-store/db"
	"vector-store/vecmath"
)

func main() {
	// load the environment variables
	_ = godotenv.Load()

	// parse the command line arguments
	cfg, err := parseFlags()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Initialize logging
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	logger := log.StandardLogger()

	// Print welcome message
	printWelcome()

	manager := db.NewManager(cfg, db.WithManagerLogger(logger))

	var persistence *db.PersistenceManager
	if cfg.Storage.PersistenceEngine {
		persistence = db.NewPersistenceManager(cfg.Storage.DataPath, logger)
		if err := persistence.RestoreAll(manager); err != nil {
			log.Fatal("Failed to load collections: ", err)
		}
	}

	if err := manager.EnsureConfigured(); err != nil {
		log.Fatal("Failed to create configured collections: ", err)
	}

	// Start persistence worker
	stopPersistence := make(chan struct{})
	workerDone := make(chan struct{})
	if persistence != nil {
		go func() {
			defer close(workerDone)
			persistenceWorker(manager, persistence, cfg.Storage.PersistenceInterval, stopPersistence)
		}()
	} else {
		close(workerDone)
	}

	// Create and start API server
	metric, _ := vecmath.ParseMetric(cfg.Server.DefaultMetric)
	opts := []api.Option{api.WithLogger(logger), api.WithDefaultMetric(metric)}
	if persistence != nil {
		opts = append(opts, api.WithPersistence(persistence))
	}
	apiServer := api.NewServer(manager, opts...)
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Info("Starting API server on ", addr)
		if err := apiServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server: ", err)
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("Failed to stop API server: ", err)
	}

	// Stop persistence worker
	close(stopPersistence)
	<-workerDone

	// Save all collections one last time
	if persistence != nil {
		if err := persistence.SaveAll(manager); err != nil {
			log.Error("Failed to save collections during shutdown: ", err)
		}
	}
}

func persistenceWorker(manager *db.Manager, persistence *db.PersistenceManager, interval int, stop chan struct{}) {
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := persistence.SaveAll(manager); err != nil {
				log.Error("Failed to save collections: ", err)
			}
		case <-stop:
			return
		}
	}
}

func parseFlags() (*config.Config, error) {
	// Load default config
	cfg, err := config.LoadFromFile("./config.json")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	// Server flags
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Host address")
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Port number")
	flag.StringVar(&cfg.Server.DefaultMetric, "metric", cfg.Server.DefaultMetric, "Default compare metric (cosine, euclidean, dot)")

	// Storage flags
	flag.StringVar(&cfg.Storage.DataPath, "data-path", cfg.Storage.DataPath, "Path to store data files")
	flag.BoolVar(&cfg.Storage.PersistenceEngine, "persistence", cfg.Storage.PersistenceEngine, "Enable persistence engine")
	flag.IntVar(&cfg.Storage.PersistenceInterval, "persistence-interval", cfg.Storage.PersistenceInterval, "Persistence interval in seconds")

	// Default collection flags
	defaultCollection := cfg.Collections["default"]
	flag.IntVar(&defaultCollection.Dimension, "dims", defaultCollection.Dimension, "Dimension of the default collection (0 disables it)")

	// Log level flag
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error, fatal)")

	// Parse flags
	flag.Parse()

	// Update default collection config
	if defaultCollection.Dimension > 0 {
		cfg.Collections["default"] = defaultCollection
	} else {
		delete(cfg.Collections, "default")
	}

	return cfg, cfg.Validate()
}

func printWelcome() {
	fmt.Println(" _   _____ ___ ___ _____ ___  ___ ___ ")
	fmt.Println("| | / / __/ __/ __|_   _/ _ \\| _ \\ __|")
	fmt.Println("| |/ /| _| (__\\__ \\ | || (_) |   / _| ")
	fmt.Println("|___/ |___\\___|___/ |_| \\___/|_|_\\___|")
}
