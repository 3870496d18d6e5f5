// Package server provides the HTTP API for triggering assessment processing.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/pipeline"
	"github.com/jonathan/readiness-agent/internal/types"
)

// Processor is the trigger surface consumed by the HTTP handlers.
type Processor interface {
	ProcessOne(ctx context.Context, id uuid.UUID) pipeline.Result
	ProcessPending(ctx context.Context) (*pipeline.BatchSummary, error)
	ProcessLatest(ctx context.Context) (pipeline.Result, *types.Assessment, error)
}

// Lifecycle controls the background poller.
type Lifecycle interface {
	Start(ctx context.Context) bool
	Stop() bool
	Status() pipeline.Status
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	processor  Processor
	lifecycle  Lifecycle
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance
func New(cfg Config, processor Processor, lifecycle Lifecycle) *Server {
	s := &Server{
		processor: processor,
		lifecycle: lifecycle,
		validate:  validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for synchronous pipeline runs
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Processing triggers
	mux.HandleFunc("POST /process/pending", s.handleProcessPending)
	mux.HandleFunc("POST /process/latest", s.handleProcessLatest)
	mux.HandleFunc("POST /process/{id}", s.handleProcessByID)
	mux.HandleFunc("POST /webhook/new-assessment", s.handleWebhook)

	// Background poller lifecycle
	mux.HandleFunc("GET /processor/status", s.handleProcessorStatus)
	mux.HandleFunc("POST /processor/start", s.handleProcessorStart)
	mux.HandleFunc("POST /processor/stop", s.handleProcessorStop)

	return s.withLogging(s.withCORS(mux))
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.lifecycle != nil {
		s.lifecycle.Stop()
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"status": "error", "message": message})
}
