package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/formatter"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogList prints the catalog, or a single page of it.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.cache.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	offset, page, pages := 0, cmd.Int("page"), 0
	if page > 0 {
		size := cmd.Int("page-size")
		if size <= 0 {
			size = r.config.Gallery.PageSize
		}
		pages = catalog.PageCount(len(entries), size)
		if page > pages {
			return fmt.Errorf("%w: page %d is out of range (catalog has %d pages)", shared.ErrInvalidArgument, page, pages)
		}
		offset = (page - 1) * size
		entries = catalog.Page(entries, size, page)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	r.writeEntries(entries, offset)
	if page > 0 {
		r.writePlain("Page %d of %d\n", page, pages)
	}
	return nil
}

// CatalogFind ranks catalog entries against a fuzzy query.
func (r *Runner) CatalogFind(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	entries, err := r.cache.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	matches := catalog.Find(entries, query)
	if limit := cmd.Int("limit"); limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(matches, true)
	}

	if len(matches) == 0 {
		r.writePlain("No songs match %q\n", query)
		return nil
	}
	r.writeEntries(matches, 0)
	return nil
}

// CatalogPlay plays the best fuzzy match for the query.
func (r *Runner) CatalogPlay(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	entries, err := r.cache.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	matches := catalog.Find(entries, query)
	if len(matches) == 0 {
		return fmt.Errorf("%w: no songs match %q", shared.ErrInvalidArgument, query)
	}
	return r.playAndWait(ctx, entries, matches[0])
}

// CatalogExport writes the catalog to a file in the requested format.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	entries, err := r.cache.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	if format == formatter.FormatMarkdown {
		var assets services.AssetFetcher
		if cmd.Bool("covers") {
			assets = r.api
		}

		result, err := formatter.WriteMarkdownExport(ctx, entries, cmd.String("output"), assets, r.logger)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d songs to %s (%d covers)\n", len(entries), result.Directory, result.Covers)
		return nil
	}

	path, err := formatter.WriteFileExport(format, entries, cmd.String("output"))
	if err != nil {
		return err
	}
	r.writePlain("✓ Exported %d songs to %s\n", len(entries), path)
	return nil
}

// writeEntries prints entries as a table numbered from offset+1.
func (r *Runner) writeEntries(entries []models.CatalogEntry, offset int) {
	if len(entries) == 0 {
		r.writePlain("The catalog is empty.\n")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{strconv.Itoa(offset + i + 1), e.Name, e.Singer, e.Music}
	}
	r.writePlain("%s\n", renderTable(
		[]string{"#", "Name", "Singer", "Music"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		r.isTerminal(),
	))
}
