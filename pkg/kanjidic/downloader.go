package kanjidic

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultURL is the EDRDG download location of the gzipped kanjidic2.xml.
const DefaultURL = "http://www.edrdg.org/kanjidic/kanjidic2.xml.gz"

// EnsureDictionary checks if kanjidic2.xml exists at path.
// If not, it downloads it from DefaultURL and decompresses it. Progress is
// reported to logger; nil means silent.
func EnsureDictionary(ctx context.Context, path string, logger *log.Logger) error {
	return ensureFrom(ctx, DefaultURL, path, logger)
}

func ensureFrom(ctx context.Context, url, path string, logger *log.Logger) error {
	if _, err := os.Stat(path); err == nil {
		// File exists
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if logger != nil {
		logger.Printf("Dictionary not found at %s. Attempting auto-download...", path)
		logger.Printf("Downloading from %s...", url)
	}
	return Download(ctx, url, path)
}

// Download fetches a gzipped kanjidic2.xml from url and writes the
// decompressed file to destPath. The file only appears once it is complete.
func Download(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "furigana-cli")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".kanjidic2-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, gzReader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}
