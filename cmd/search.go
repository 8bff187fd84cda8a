package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/tasks"
	"github.com/urfave/cli/v3"
)

// searchOutput is the --json shape of a settled search.
type searchOutput struct {
	Flow       string               `json:"flow"`
	MatchedRef string               `json:"matched_ref"`
	Similarity float64              `json:"similarity_percentage"`
	Elapsed    float64              `json:"elapsed_seconds"`
	Match      *models.CatalogEntry `json:"match"`
	Message    string               `json:"message"`
}

// SearchCover uploads a cover image and resolves the best matching song.
func (r *Runner) SearchCover(ctx context.Context, cmd *cli.Command) error {
	return r.search(ctx, cmd, models.CoverFlow)
}

// SearchSound uploads a MIDI file and resolves the best matching song.
func (r *Runner) SearchSound(ctx context.Context, cmd *cli.Command) error {
	return r.search(ctx, cmd, models.SoundFlow)
}

func (r *Runner) search(ctx context.Context, cmd *cli.Command, flow models.Flow) error {
	job, err := models.NewUploadJob(flow.QueryKind(), cmd.StringArg("file"))
	if err != nil {
		return err
	}

	resp, err := r.coordinator.SubmitQuery(ctx, *job, nil)
	if err != nil {
		return err
	}
	r.logger.Debug("query uploaded", "flow", flow, "message", resp.Message)

	recorder, closeHistory := r.recorder()
	defer closeHistory()

	session := tasks.NewSession(tasks.SessionOpts{
		Flow:        flow,
		Cache:       r.cache,
		Results:     r.api,
		CoverPrefix: r.config.Backend.CoverAssetPrefix,
		Recorder:    recorder,
		Logger:      shared.WithLogger(r.logger, "component", "search"),
	})
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}
	snap, err := session.Wait(ctx)
	if err != nil {
		return err
	}
	if snap.State == tasks.Failed {
		return snap.Err
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(newSearchOutput(snap), true); err != nil {
			return err
		}
	} else {
		r.writeSnapshot(resp.Message, snap)
	}

	if !cmd.Bool("play") {
		return nil
	}
	if snap.Match == nil {
		return fmt.Errorf("%w: nothing to play", shared.ErrNoActiveTrack)
	}
	return r.playAndWait(ctx, r.cache.Entries(), *snap.Match)
}

func newSearchOutput(snap tasks.Snapshot) searchOutput {
	out := searchOutput{Flow: snap.Flow.String(), Match: snap.Match, Message: snap.Message()}
	if snap.Result != nil {
		out.MatchedRef = snap.Result.MatchedRef
		out.Similarity = snap.Result.Similarity
		out.Elapsed = snap.Result.ElapsedSeconds()
	}
	return out
}

func (r *Runner) writeSnapshot(uploadMessage string, snap tasks.Snapshot) {
	if uploadMessage != "" {
		r.writePlain("%s\n", uploadMessage)
	}

	r.writePlainHeader(snap.Message())
	if snap.Match != nil {
		r.writePlain("Music:      %s\n", snap.Match.Music)
		r.writePlain("Cover:      %s\n", snap.Match.Img)
	}
	if snap.Result != nil {
		r.writePlain("Similarity: %.2f%%\n", snap.Result.Similarity)
		r.writePlain("Time:       %.2fs\n", snap.Result.ElapsedSeconds())
	}
}
