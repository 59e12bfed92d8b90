package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/ai"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the AI about the enrollment log",
	Long: `Send a natural-language question about the enrolled identities to the
configured AI provider (QA_PROVIDER: openai or gemini).

Examples:
  facewatch ask "who was enrolled most recently?"
  facewatch ask "how many people named jane are in the gallery?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	provider, err := buildProvider(ctx, rt.cfg)
	if err != nil {
		return err
	}
	if provider == nil {
		return errors.New("no AI provider configured; set OPENAI_TOKEN or GEMINI_API_KEY")
	}

	entries := ai.EntriesFromRecords(rt.gallery.Snapshot())
	answer, err := provider.Answer(ctx, question, entries)
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}

	fmt.Println(answer)
	return nil
}
