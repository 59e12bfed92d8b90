package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Bulk-enroll faces from a directory of images",
	Long: `Enroll every image in a directory. The person's name is taken from
the file name without its extension, with dashes and underscores turned
into spaces (jane-doe.jpg enrolls "jane doe").

Examples:
  # Enroll everyone in the team folder
  facewatch import ./team

  # Use more parallel embedding requests
  facewatch import ./team --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("concurrency", 4, "Number of parallel embedding requests")
}

// nameFromFile derives a display name from an image file name.
func nameFromFile(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}

func isImportableImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func runImport(cmd *cobra.Command, args []string) error {
	dir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && isImportableImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		fmt.Println("No images found to import")
		return nil
	}

	fmt.Printf("Importing %d images from %s\n\n", len(files), dir)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled, noFace, failed int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			imageData, err := os.ReadFile(path)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			face, err := rt.embedder.ExtractFace(ctx, imageData)
			if err != nil {
				mu.Lock()
				if errors.Is(err, embedding.ErrNoFace) {
					noFace++
				} else {
					failed++
				}
				mu.Unlock()
				return
			}

			rec, err := rt.gallery.Insert(gallery.EnrolledIdentity{
				Name:      nameFromFile(path),
				Embedding: face.Embedding,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			enrolled++
			if rt.repo != nil {
				if err := rt.repo.Save(ctx, rec); err != nil {
					fmt.Printf("\nWarning: failed to mirror %s to database: %v\n", rec.Name, err)
				}
			}
		}(path)
	}
	wg.Wait()

	if err := rt.saveGalleryFile(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	fmt.Printf("\n\nImport finished: %d enrolled, %d without a face, %d failed\n", enrolled, noFace, failed)
	fmt.Printf("Gallery now holds %d identities\n", rt.gallery.Count())
	return nil
}
