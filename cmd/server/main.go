/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the site definition (resources, policies, roster, rates)
  3. Initialize SQLite store and seed rates
  4. Pick the lock provider (in-process or Redis)
  5. Build the engine, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: bookings.db)
            Use ":memory:" for an in-memory database
  -site     Site definition JSON path (default: built-in demo site)
  -redis    Redis address for cross-process locks (default: in-process)
  -origins  Comma-separated CORS origins (default: local dev servers)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run the demo site with a file database
  ./server -db="./data/bookings.db"

  # Run a real site definition
  ./server -site="./site.json"

  # Share locks across replicas
  ./server -site="./site.json" -redis="localhost:6379"

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Site definition format
  - store/sqlite/sqlite.go: Database implementation
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
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/locking"
	"github.com/warp/booking-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bookings.db", "SQLite database path")
	sitePath := flag.String("site", "", "site definition JSON path (empty runs the demo site)")
	redisAddr := flag.String("redis", "", "Redis address for cross-process locks (empty keeps locks in-process)")
	origins := flag.String("origins", "", "comma-separated CORS origins")
	flag.Parse()

	// Load site definition
	var site *factory.Site
	var err error
	if *sitePath != "" {
		site, err = factory.LoadSite(*sitePath)
	} else {
		log.Printf("No -site given, running the built-in demo site")
		site, err = factory.ParseSite(factory.DemoSiteJSON())
	}
	if err != nil {
		log.Fatalf("Failed to load site definition: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed rates from the site definition
	for _, row := range site.Rates {
		if err := store.SetRate(context.Background(), row.Resource, row.Subject, row.PerShift); err != nil {
			log.Fatalf("Failed to seed rates: %v", err)
		}
	}

	// Pick the lock provider
	var locks locking.Locker = locking.NewMemory()
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to reach Redis at %s: %v", *redisAddr, err)
		}
		locks = locking.NewRedis(client)
		log.Printf("Using Redis locks via %s", *redisAddr)
	}

	// Build the engine
	engine, err := booking.New(booking.Config{
		Store:     store,
		Roster:    site.Roster,
		Rates:     store,
		Locks:     locks,
		Resources: site.Resources,
		Zone:      site.Zone,
	})
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	// Initialize handler and router
	handler := api.NewHandler(engine, store)
	router := api.NewRouter(handler, splitOrigins(*origins))

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(s, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
