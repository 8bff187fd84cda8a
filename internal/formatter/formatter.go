// package formatter provides functions to export catalog and search history data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
)

// Format names accepted by [ParseFormat].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ParseFormat normalizes a --format value.
func ParseFormat(s string) (string, error) {
	switch s {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected csv, markdown or text)", s)
	}
}

// ExportToCSV converts catalog entries to CSV format with columns: Name, Singer, Img, Music
func ExportToCSV(entries []models.CatalogEntry) ([]byte, error) {
	records := make([][]string, len(entries))
	for i, e := range entries {
		records[i] = []string{e.Name, e.Singer, e.Img, e.Music}
	}
	return writeCSV([]string{"Name", "Singer", "Img", "Music"}, records)
}

// ExportHistoryToCSV converts search records to CSV with columns: ID, Flow, MatchedRef, Similarity, ElapsedSeconds, Match, Error, CreatedAt
func ExportHistoryToCSV(records []*models.SearchRecord) ([]byte, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ID(),
			r.Flow().String(),
			r.MatchedRef(),
			strconv.FormatFloat(r.Similarity(), 'f', 2, 64),
			strconv.FormatFloat(r.Elapsed().Seconds(), 'f', 2, 64),
			r.EntryName(),
			r.ErrorMessage(),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
	}
	return writeCSV([]string{"ID", "Flow", "MatchedRef", "Similarity", "ElapsedSeconds", "Match", "Error", "CreatedAt"}, rows)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the catalog as a Markdown document.
//
// covers maps an entry's Img reference to a local image path; entries without one are listed without a picture.
func ExportToMarkdown(title string, entries []models.CatalogEntry, covers map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(entries))

	buf.WriteString("## Songs\n\n")
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. **%s**", i+1, e.Name)
		if e.Singer != "" {
			fmt.Fprintf(&buf, " by %s", e.Singer)
		}
		fmt.Fprintf(&buf, " (`%s`)\n", e.Music)
		if cover, ok := covers[e.Img]; ok {
			fmt.Fprintf(&buf, "\n   ![%s](%s)\n\n", e.Name, cover)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts catalog entries to plain text format
func ExportToText(entries []models.CatalogEntry) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Songs: %d\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, e.Title())
	}

	return buf.Bytes(), nil
}

// Export renders entries in format. Markdown output has no cover images.
func Export(format string, entries []models.CatalogEntry) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(entries)
	case FormatMarkdown:
		return ExportToMarkdown("Catalog", entries, nil)
	case FormatText:
		return ExportToText(entries)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// WriteFileExport writes entries in format to filepath.
//
// Defaults to catalog.{csv,md,txt} in the working directory.
func WriteFileExport(format string, entries []models.CatalogEntry, filepath string) (string, error) {
	if filepath == "" {
		ext := map[string]string{FormatCSV: "csv", FormatMarkdown: "md", FormatText: "txt"}[format]
		filepath = "catalog." + ext
	}

	data, err := Export(format, entries)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return filepath, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    int
}

// WriteMarkdownExport exports the catalog to a dedicated directory with its cover images.
//
// Creates {dir}/README.md and, when assets is non-nil, {dir}/covers/<image>.
// A cover that fails to download is logged and left out.
func WriteMarkdownExport(ctx context.Context, entries []models.CatalogEntry, outputDir string, assets services.AssetFetcher, logger *log.Logger) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "catalog"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	covers := map[string]string{}
	if assets != nil {
		if err := os.MkdirAll(filepath.Join(outputDir, "covers"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create covers directory: %w", err)
		}

		for _, e := range entries {
			if e.Img == "" || covers[e.Img] != "" {
				continue
			}
			rel := path.Join("covers", path.Base(e.Img))
			if err := downloadCover(ctx, assets, e.Img, filepath.Join(outputDir, rel)); err != nil {
				if logger != nil {
					logger.Warn("failed to download cover image", "img", e.Img, "error", err)
				}
				continue
			}
			covers[e.Img] = rel
			result.Covers++
			result.Files = append(result.Files, filepath.Join(outputDir, rel))
		}
	}

	mdData, err := ExportToMarkdown("Catalog", entries, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

func downloadCover(ctx context.Context, assets services.AssetFetcher, ref, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := assets.DownloadAsset(ctx, ref, f); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}
