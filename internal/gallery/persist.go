package gallery

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
)

const exportVersion = 1

// galleryExport is the on-disk gob representation of a gallery.
type galleryExport struct {
	Version int
	Records []EnrolledIdentity
}

// SaveTo writes all records to a local file. Used by the CLI to keep the
// gallery between runs when no database is configured.
func (g *Gallery) SaveTo(path string) error {
	export := galleryExport{
		Version: exportVersion,
		Records: g.Snapshot(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(export); err != nil {
		return fmt.Errorf("failed to encode gallery: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write gallery file: %w", err)
	}
	return nil
}

// LoadFrom reads records from a local file and inserts them into the gallery.
// A missing file is not an error; the gallery simply starts empty.
// Records with a mismatched dimension are skipped and counted in the error.
func (g *Gallery) LoadFrom(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read gallery file: %w", err)
	}

	var export galleryExport
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&export); err != nil {
		return fmt.Errorf("failed to decode gallery file: %w", err)
	}

	skipped := 0
	for i := range export.Records {
		if _, err := g.Insert(export.Records[i]); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		return fmt.Errorf("skipped %d records with wrong dimension", skipped)
	}
	return nil
}
