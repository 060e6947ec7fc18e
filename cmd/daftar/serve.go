package main

import (
	"context"
	"embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daftar/daftar/pkg/config"
	"github.com/daftar/daftar/pkg/server"
	"github.com/daftar/daftar/pkg/telemetry"
)

//go:embed web/*
var webFS embed.FS

var (
	servePort      int
	serveHost      string
	serveNoBrowser bool
	serveVerbose   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start a local HTTP server with the registration dashboard.

The server provides:
  - Web-based upload and analysis of registration exports
  - Toggleable report sections with charts
  - Real-time progress streaming
  - REST API for programmatic access

Examples:
  daftar serve                    # Start on default port (8080)
  daftar serve --port 3000        # Start on custom port
  daftar serve --host 0.0.0.0     # Listen on all interfaces
  daftar serve --no-browser       # Don't open browser automatically`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Don't open browser")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Global()

	// Flags win over the config file, the config file over defaults.
	if servePort == 0 {
		servePort = cfg.Server.Port
	}
	if serveHost == "" {
		serveHost = cfg.Server.Host
	}

	log, err := newLogger(serveVerbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(cmd.Context(), telemetry.OTLPConfig{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceName:    "daftar",
			ServiceVersion: version,
			SamplingRatio:  cfg.Telemetry.SamplingRatio,
		})
		if err != nil {
			log.Warn("telemetry disabled", zap.Error(err))
		} else {
			defer shutdown(context.Background())
		}
	}

	srv, err := server.NewServer(cfg, webFS, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Disable for SSE
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://%s:%d", serveHost, servePort)
	if serveHost == "0.0.0.0" || serveHost == "" {
		url = fmt.Sprintf("http://localhost:%d", servePort)
	}

	fmt.Println()
	fmt.Println("  ╭─────────────────────────────────────╮")
	fmt.Println("  │      DASHBOARD PENDAFTARAN          │")
	fmt.Println("  ├─────────────────────────────────────┤")
	fmt.Printf("  │  Local:   %-25s │\n", url)
	if serveHost == "0.0.0.0" {
		if ip := getOutboundIP(); ip != "" {
			fmt.Printf("  │  Network: http://%-17s │\n", fmt.Sprintf("%s:%d", ip, servePort))
		}
	}
	fmt.Println("  │                                     │")
	fmt.Println("  │  Press Ctrl+C to stop               │")
	fmt.Println("  ╰─────────────────────────────────────╯")
	fmt.Println()

	if cfg.Server.OpenBrowser && !serveNoBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// openBrowser opens URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	cmd.Start()
}

// getOutboundIP gets the preferred outbound IP.
func getOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
