package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chatrelay/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional; env vars used otherwise)")
	flag.Parse()

	fmt.Println("Starting ChatRelay server...")

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	server.SetConfig(config)

	hub := server.NewHub()
	server.StartHub(hub)

	mux := server.SetupRoutes(hub)
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigCh:
		log.Printf("Received signal %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, config.ShutdownTimeout); err != nil {
		log.Printf("HTTP shutdown did not complete cleanly: %v", err)
	}
	if err := hub.Shutdown(config.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown did not complete cleanly: %v", err)
	}
}

func loadConfig(path string) (*server.Config, error) {
	if path == "" {
		return server.NewConfigFromEnv(), nil
	}
	return server.LoadConfigFile(path)
}
