package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/matcher"
	"github.com/JIVTESH28/facewatch/internal/render"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Match a probe image against the enrolled gallery",
	Long: `Match a single image against the gallery and print the decision.

The strongest detected face is embedded and compared against every
enrolled identity using cosine similarity.

Examples:
  # Match with the configured threshold
  facewatch match probe.jpg

  # Stricter acceptance
  facewatch match probe.jpg --threshold 0.75

  # Machine-readable output
  facewatch match probe.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", -1, "Acceptance threshold (defaults to MATCH_THRESHOLD)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold < 0 {
		threshold = rt.cfg.Recognizer.Threshold
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	dec := matcher.Decision{ThresholdUsed: threshold, Reason: matcher.ReasonNoFace}
	face, err := rt.embedder.ExtractFace(ctx, imageData)
	switch {
	case errors.Is(err, embedding.ErrNoFace):
		// keep the no-face decision
	case err != nil:
		return fmt.Errorf("failed to extract face embedding: %w", err)
	default:
		dec = matcher.Match(face.Embedding, rt.gallery.Snapshot(), threshold)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dec)
	}

	palette := render.PaletteFromSpecs(rt.cfg.Tiers.Tiers)
	tier := palette.TierFor(dec.Score)
	fmt.Printf("%s\n", render.Label(dec))
	fmt.Printf("  Matched: %v (threshold %.2f, tier %s)\n", dec.Matched, dec.ThresholdUsed, tier.Name)
	if dec.Matched {
		fmt.Printf("  Identity: %s (%s)\n", dec.Name, dec.IdentityID)
	} else {
		fmt.Printf("  Reason: %s\n", dec.Reason)
	}
	return nil
}
