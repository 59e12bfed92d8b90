package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facewatch",
	Short: "A face enrollment and live recognition engine",
	Long: `Facewatch keeps a gallery of enrolled face embeddings and matches
probe images against it, either one-shot or continuously from a camera
snapshot feed. Embeddings come from an external embedding service;
decisions are rendered onto frames with confidence-tier colors.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
