package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/simsa/internal/formatter"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recorded searches, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, closeHistory, err := r.openHistory()
	defer closeHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	records, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list searches: %w", err)
	}

	if cmd.String("format") == formatter.FormatCSV {
		data, err := formatter.ExportHistoryToCSV(records)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if len(records) == 0 {
		r.writePlain("No searches recorded yet.\n")
		return nil
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			humanize.Time(rec.CreatedAt()),
			rec.Flow().String(),
			historyOutcome(rec),
			fmt.Sprintf("%.2f%%", rec.Similarity()),
			fmt.Sprintf("%.2fs", rec.Elapsed().Seconds()),
		}
	}
	r.writePlain("%s\n", renderTable(
		[]string{"When", "Flow", "Result", "Similarity", "Time"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		r.isTerminal(),
	))
	return nil
}

func historyOutcome(rec *models.SearchRecord) string {
	switch {
	case rec.Failed():
		return "failed: " + rec.ErrorMessage()
	case rec.Matched() && rec.EntrySinger() != "":
		return rec.EntryName() + " - " + rec.EntrySinger()
	case rec.Matched():
		return rec.EntryName()
	default:
		return models.NoMatchLabel
	}
}

// HistoryClear removes every recorded search.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	repo, closeHistory, err := r.openHistory()
	defer closeHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	n, err := repo.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	r.logger.Info("history cleared", "searches", n)
	r.writePlain("✓ Removed %s searches\n", humanize.Comma(n))
	return nil
}
