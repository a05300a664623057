/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the realty-flow billing server.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Create API handler and router
  4. Start server with graceful shutdown

CONFIGURATION:
  -port / PORT          HTTP server port (default: 8080)
  -db   / REALTY_DB     SQLite database path (default: realty.db)
                        Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

SEE ALSO:
  - api/server.go:       Router configuration
  - store/sqlite:        Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pakjc16/realty-flow/api"
	"github.com/pakjc16/realty-flow/store/sqlite"
)

func main() {
	// .env is optional; flags override environment.
	_ = godotenv.Load()

	defaultPort := 8080
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		defaultPort = p
	}
	defaultDB := "realty.db"
	if db := os.Getenv("REALTY_DB"); db != "" {
		defaultDB = db
	}

	port := flag.Int("port", defaultPort, "HTTP server port")
	dbPath := flag.String("db", defaultDB, "SQLite database path")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Billing server listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
