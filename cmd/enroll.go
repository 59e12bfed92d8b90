package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name> <image>",
	Short: "Enroll a face into the gallery",
	Long: `Enroll a person into the gallery from a single image.

The image is sent to the embedding service; the strongest detected face
becomes the enrollment embedding. Re-enrolling with --id replaces the
existing record in place.

Examples:
  # Enroll from a photo
  facewatch enroll "Jane Doe" jane.jpg

  # Replace an existing record
  facewatch enroll "Jane Doe" jane2.jpg --id 6e1c...`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Identity ID to replace (defaults to a new ID)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name, imagePath := args[0], args[1]
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	face, err := rt.embedder.ExtractFace(ctx, imageData)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFace) {
			return fmt.Errorf("no face detected in %s", imagePath)
		}
		return fmt.Errorf("failed to extract face embedding: %w", err)
	}

	rec, err := rt.gallery.Insert(gallery.EnrolledIdentity{
		ID:        mustGetString(cmd, "id"),
		Name:      name,
		Embedding: face.Embedding,
	})
	if err != nil {
		return err
	}
	if err := rt.mirror(ctx, rec); err != nil {
		return err
	}

	fmt.Printf("Enrolled %s (id %s, det score %.2f)\n", rec.Name, rec.ID, face.DetScore)
	fmt.Printf("Gallery now holds %d identities\n", rt.gallery.Count())
	return nil
}
