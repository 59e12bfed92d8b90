package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and manage the enrolled gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled identities",
	RunE:  runGalleryList,
}

var galleryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every enrolled identity",
	RunE:  runGalleryClear,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryClearCmd)

	galleryClearCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	records := rt.gallery.Snapshot()
	if len(records) == 0 {
		fmt.Println("Gallery is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDIM\tENROLLED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			rec.ID, rec.Name, len(rec.Embedding), rec.EnrolledAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Printf("\n%d identities (dimension %d)\n", len(records), rt.gallery.Dim())
	return nil
}

func runGalleryClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !mustGetBool(cmd, "yes") {
		fmt.Printf("This removes all %d enrolled identities. Continue? [y/N] ", rt.gallery.Count())
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	removed := rt.gallery.RemoveAll()
	if rt.repo != nil {
		if _, err := rt.repo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear identities in database: %w", err)
		}
	}
	if err := rt.saveGalleryFile(); err != nil {
		return err
	}

	fmt.Printf("Removed %d identities\n", removed)
	return nil
}
