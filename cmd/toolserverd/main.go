// toolserverd exposes Polymarket market-data and trading operations as
// agent-callable tools over HTTP, with optional read-only gating.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/forecastlab/polymarket-tools/config"
	"github.com/forecastlab/polymarket-tools/core"
	"github.com/forecastlab/polymarket-tools/pkg/metrics"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/gamma"
	"github.com/forecastlab/polymarket-tools/pkg/streaming"
	"github.com/forecastlab/polymarket-tools/tools/polymarket"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Flags override the environment.
	httpAddr     = flag.String("http", "", "HTTP server address (default from HTTP_ADDR or :8080)")
	readOnly     = flag.Bool("read-only", false, "Suppress trading tools regardless of environment")
	streamTokens = flag.String("stream", "", "Comma-separated token ids to stream live books for")
	verbose      = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting Polymarket tool server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *readOnly {
		cfg.ReadOnly = true
	}

	srv, err := newServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	go srv.hub.Run()

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	if *streamTokens != "" {
		srv.startStream(streamCtx, strings.Split(*streamTokens, ","))
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("Server running (read_only=%v, tools=%d, address=%s)",
		cfg.ReadOnly, srv.registry.Len(), srv.clobClient.Address())
	log.Printf("WebSocket streaming available at ws://%s/ws", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	log.Println("Goodbye!")
}

type toolServer struct {
	cfg         *config.Config
	gammaClient *gamma.Client
	clobClient  *clob.Client
	registry    *core.Registry
	metrics     *metrics.ToolMetrics
	hub         *streaming.Hub
}

// startStream subscribes to the market channel for the given tokens and
// relays the upstream events to WebSocket clients as-is.
func (s *toolServer) startStream(ctx context.Context, tokenIDs []string) {
	for i := range tokenIDs {
		tokenIDs[i] = strings.TrimSpace(tokenIDs[i])
	}

	stream := clob.NewMarketStream(clob.DefaultStreamURL, tokenIDs, clob.StreamHandlers{
		OnConnect: func() {
			log.Printf("Market stream connected (%d tokens)", len(tokenIDs))
		},
		OnBook: func(e clob.BookEvent) {
			s.hub.BroadcastStatus(e)
		},
		OnPriceChange: func(e clob.PriceChangeEvent) {
			s.hub.BroadcastStatus(e)
		},
		OnLastTrade: func(e clob.LastTradeEvent) {
			s.hub.BroadcastOrder(e)
		},
		OnError: func(err error) {
			log.Printf("Market stream error: %v", err)
			s.metrics.RecordUpstreamError("stream")
			s.hub.BroadcastError(err, "stream")
		},
	})
	go stream.Run(ctx)
	log.Printf("Relaying market events for %d tokens", len(tokenIDs))
}

func newServer(cfg *config.Config) (*toolServer, error) {
	srv := &toolServer{
		cfg:     cfg,
		metrics: metrics.NewToolMetrics(),
		hub:     streaming.NewHub(),
	}

	srv.gammaClient = gamma.NewClient(gamma.WithBaseURL(cfg.GammaBaseURL))

	opts := []clob.Option{
		clob.WithBaseURL(cfg.CLOBBaseURL),
		clob.WithChainID(cfg.ChainID),
	}
	if cfg.Funder != "" {
		opts = append(opts, clob.WithFunder(cfg.Funder))
	}
	if creds := cfg.Credentials(); creds != nil {
		opts = append(opts, clob.WithCredentials(creds))
	}

	clobClient, err := clob.NewClient(cfg.PrivateKey, opts...)
	if err != nil {
		return nil, err
	}
	srv.clobClient = clobClient
	log.Printf("CLOB client initialized (address: %s, funder: %s)", clobClient.Address(), clobClient.Funder())

	// Without configured credentials, derive them from the key so the
	// authenticated tools work out of the box.
	if !clobClient.HasCredentials() && !cfg.ReadOnly {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := clobClient.CreateOrDeriveAPIKey(ctx); err != nil {
			log.Printf("Warning: could not derive API credentials: %v", err)
			log.Println("Authenticated tools will fail until credentials are configured")
		}
	}

	srv.registry = core.NewRegistry(
		core.WithReadOnly(cfg.ReadOnly),
		core.WithObserver(srv.metrics),
	)
	polymarket.RegisterAllTools(srv.registry, srv.gammaClient, srv.clobClient)
	srv.metrics.SetRegisteredTools(srv.registry.Len())

	if cfg.ReadOnly {
		log.Printf("Read-only mode: trading tools suppressed (%d tools registered)", srv.registry.Len())
	}

	return srv, nil
}

func (s *toolServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"read_only": s.cfg.ReadOnly,
			"tools":     s.registry.Len(),
		})
	})

	mux.HandleFunc("/tools", s.handleListTools)
	mux.HandleFunc("/tools/", s.handleInvoke)

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", s.hub.ServeWS)

	return mux
}

// toolDescriptor is one entry of the GET /tools listing.
type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func (s *toolServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	descriptors := make([]toolDescriptor, 0, s.registry.Len())
	for _, name := range s.registry.Names() {
		tool, _ := s.registry.Get(name)
		descriptors = append(descriptors, toolDescriptor{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: json.RawMessage(tool.InputSchema()),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": descriptors})
}

// handleInvoke runs POST /tools/{name}. The response is always the
// uniform envelope; tool failures come back as HTTP 200 with isError
// set, so callers only need one decode path.
func (s *toolServer) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "tool name required", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	start := time.Now()

	result := s.registry.Invoke(r.Context(), name, body)

	elapsed := time.Since(start)
	if *verbose || result.IsError {
		log.Printf("[%s] %s error=%v (%.2fms)", requestID, name, result.IsError,
			float64(elapsed.Microseconds())/1000)
	}
	s.hub.BroadcastInvocation(requestID, name, result.IsError, elapsed)
	if name == "cancel_order" && !result.IsError {
		s.hub.BroadcastCancel(map[string]interface{}{"request_id": requestID})
	}

	w.Header().Set("X-Request-Id", requestID)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
