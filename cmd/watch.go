package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/recognizer"
	"github.com/JIVTESH28/facewatch/internal/render"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the live recognition loop in the terminal",
	Long: `Continuously capture frames, match every detected face against the
gallery and print each decision.

Frames come from the camera snapshot URL (CAMERA_URL) or from a local
image directory with --dir. With --out the latest annotated frame is
written as JPEG after each cycle.

Examples:
  # Watch the configured camera
  facewatch watch

  # Replay a folder of images at two frames per second
  facewatch watch --dir ./frames --interval 500

  # Keep the annotated frame on disk for a dashboard to pick up
  facewatch watch --out ./live`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Float64("threshold", -1, "Acceptance threshold (defaults to MATCH_THRESHOLD)")
	watchCmd.Flags().Int("interval", 0, "Cycle interval in milliseconds (defaults to CYCLE_INTERVAL_MS)")
	watchCmd.Flags().String("dir", "", "Read frames from a local image directory instead of the camera")
	watchCmd.Flags().String("out", "", "Directory to write the latest annotated frame to")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	source, err := buildSource(rt.cfg, mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}

	outDir := mustGetString(cmd, "out")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	opts := recognizer.Options{
		Threshold: rt.cfg.Recognizer.Threshold,
		Interval:  rt.cfg.Recognizer.CycleInterval,
	}
	if t := mustGetFloat64(cmd, "threshold"); t >= 0 {
		opts.Threshold = t
	}
	if ms := mustGetInt(cmd, "interval"); ms > 0 {
		opts.Interval = time.Duration(ms) * time.Millisecond
	}

	palette := render.PaletteFromSpecs(rt.cfg.Tiers.Tiers)
	session := recognizer.NewSession(source, rt.embedder, rt.gallery, palette, opts)

	events := session.AddListener()
	defer session.RemoveListener(events)

	if _, err := session.Start(ctx, opts); err != nil {
		return fmt.Errorf("failed to start live session: %w", err)
	}

	fmt.Printf("Watching (%d identities enrolled, threshold %.2f)\n", rt.gallery.Count(), opts.Threshold)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nStopping...")
			session.Stop()
			return nil
		case ev := <-events:
			tier := palette.TierFor(ev.Decision.Score)
			fmt.Printf("[cycle %d] %-24s tier=%-6s reason=%s\n",
				ev.Cycle, render.Label(ev.Decision), tier.Name, ev.Decision.Reason)

			if outDir != "" {
				if state := session.Latest(); state != nil && len(state.Frame) > 0 {
					path := filepath.Join(outDir, "latest.jpg")
					if err := os.WriteFile(path, state.Frame, 0o644); err != nil {
						fmt.Printf("Warning: failed to write frame: %v\n", err)
					}
				}
			}
		}
	}
}
