package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/recognizer"
	"github.com/JIVTESH28/facewatch/internal/render"
	"github.com/JIVTESH28/facewatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facewatch web server.
The server exposes the enrollment gallery, one-shot matching and the
live recognition session over a JSON API, including an SSE event stream
of live decisions.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("dir", "", "Serve frames from a local image directory instead of the camera")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	source, err := buildSource(rt.cfg, mustGetString(cmd, "dir"))
	if err != nil {
		// The rest of the API works without a camera; live start will
		// report the source as unavailable.
		fmt.Printf("Warning: %v; live recognition is disabled\n", err)
		source = capture.NewSnapshotSource("")
	}

	provider, err := buildProvider(ctx, rt.cfg)
	if err != nil {
		return err
	}
	if provider == nil {
		fmt.Println("No AI provider configured; /ask endpoint is disabled")
	}

	palette := render.PaletteFromSpecs(rt.cfg.Tiers.Tiers)
	session := recognizer.NewSession(source, rt.embedder, rt.gallery, palette, recognizer.Options{
		Threshold: rt.cfg.Recognizer.Threshold,
		Interval:  rt.cfg.Recognizer.CycleInterval,
	})

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(rt.cfg, port, host, web.Deps{
		Gallery:    rt.gallery,
		Embedder:   rt.embedder,
		Session:    session,
		Identities: rt.repo,
		Provider:   provider,
		Palette:    palette,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facewatch API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
