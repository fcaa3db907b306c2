package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/voteroom/go/internal/config"
	"github.com/mcdev12/voteroom/go/internal/gateway"
)

func setupServer(cfg *config.Config, service *gateway.Service) *http.Server {
	mux := http.NewServeMux()

	// Register gateway routes (WebSocket and REST)
	service.RegisterRoutes(mux)

	// Add health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Add service info
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := service.GetStats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"voteroom","version":"1.0.0","connections":%d}`,
			stats["total_connections"])
	})

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(mux)

	// Setup HTTP/2-capable server; WebSocket upgrades pass through h2c
	// over plain HTTP/1.1.
	return &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     h2c.NewHandler(handler, &http2.Server{}),
		IdleTimeout: 120 * time.Second,
	}
}
