package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/api"
	"github.com/shoptalk/shoptalk/internal/chunker"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/engine"
	"github.com/shoptalk/shoptalk/internal/gateway"
	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/localdetect"
	"github.com/shoptalk/shoptalk/internal/reranking"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shoptalk server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running shoptalk server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show shoptalk system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "shoptalk.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "shoptalk version %s\n", version)

	cfg, err := config.LoadForServe()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("shoptalk is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("shoptalk is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check local inference engine readiness.
	eng := engine.NewOllama(cfg.Ollama.BaseURL)
	models := []string{cfg.Ollama.EmbedModel, cfg.Ollama.DetectModel}
	if cfg.Reranking.Enabled && cfg.Ollama.RerankModel != cfg.Ollama.DetectModel {
		models = append(models, cfg.Ollama.RerankModel)
	}
	if err := engine.EnsureReady(ctx, eng, models, os.Stderr); err != nil {
		return err
	}

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the answer pipeline.
	embedder := retrieval.NewEmbedder(eng, cfg.Ollama.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	retriever := retrieval.NewRetriever(embedder, vectorStore)
	var detector *localdetect.Detector
	if cfg.Ollama.DetectModel != "" {
		detector = localdetect.NewDetector(eng, cfg.Ollama.DetectModel)
	}
	rerankTimeout, err := time.ParseDuration(cfg.Reranking.Timeout)
	if err != nil {
		slog.Warn("invalid reranking timeout, using default 10s", "value", cfg.Reranking.Timeout, "error", err)
		rerankTimeout = 10 * time.Second
	}
	reranker := reranking.NewReranker(
		eng,
		cfg.Ollama.RerankModel,
		cfg.Reranking.Enabled,
		rerankTimeout,
		cfg.Reranking.Threshold,
		cfg.Retrieval.TopK,
	)
	composer := answer.NewComposer(cfg.Retrieval.MaxContextTokens)
	gw := gateway.NewClient(cfg.Gateway.OpenRouterAPIKey, cfg.Gateway.RequestsPerSecond)
	pipeline := answer.NewPipeline(
		detector,
		retriever,
		reranker,
		composer,
		gw,
		store,
		cfg.Gateway.AnswerModel,
		cfg.Retrieval.TopK,
	)

	// Build HTTP handler and server. Health stays outside bearer auth so the
	// status command and the already-running check work without a token.
	appHandler := api.NewAppHandler(api.AppDeps{
		Store:   store,
		Asker:   pipeline,
		Token:   apiToken,
		Vectors: vectorStore,
	})
	topRouter := chi.NewRouter()
	topRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	topRouter.Mount("/", appHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// Start ingest worker.
	worker := ingest.NewWorker(store, embedder, vectorStore, chunker.Config{}, 500*time.Millisecond)
	go worker.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     store,
		Retriever: retriever,
		Asker:     pipeline,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "shoptalk listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("shoptalk is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop shoptalk (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to shoptalk (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check Ollama.
	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	// Show models.
	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	printStatus("Detect model", "%s", cfg.Ollama.DetectModel)
	printStatus("Rerank model", "%s", cfg.Ollama.RerankModel)
	printStatus("Answer model", "%s", cfg.Gateway.AnswerModel)

	// Show document counts if server is running.
	apiToken, tokenErr := config.GetAPIToken()
	if tokenErr == nil && resp != nil && resp.StatusCode == 200 {
		docsResp, err := apiGet(client, serverURL+"/documents", apiToken)
		if err == nil {
			var docs []json.RawMessage
			if json.NewDecoder(docsResp.Body).Decode(&docs) == nil {
				printStatus("Documents", "%d", len(docs))
			}
			docsResp.Body.Close()
		}
		convResp, err2 := apiGet(client, serverURL+"/conversations?limit=100", apiToken)
		if err2 == nil {
			var conversations []json.RawMessage
			if json.NewDecoder(convResp.Body).Decode(&conversations) == nil {
				printStatus("Conversations", "%s", countLabel(len(conversations), 100))
			}
			convResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
