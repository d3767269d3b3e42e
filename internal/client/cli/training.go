package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/client/dataset"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
)

// Train collects the training form, submits it and starts following the
// new job's progress. A stream that was already running is replaced.
func (a *App) Train(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Please log in first")
		return nil
	}

	var form models.TrainingForm
	prompts := []struct {
		text string
		dst  *string
	}{
		{"Target column", &form.TargetColumn},
		{"C (blank for default)", &form.C},
		{"max_iter (blank for default)", &form.MaxIter},
	}
	for _, p := range prompts {
		v, err := getSimpleText(a.reader, p.text, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	csvLocation, err := getSimpleText(a.reader, "CSV file, local path, s3://bucket/key or URL (blank for none)", a.out)
	if err != nil {
		return err
	}
	paramsPath, err := getSimpleText(a.reader, "Parameter file, YAML or JSON (blank for none)", a.out)
	if err != nil {
		return err
	}
	if form.Extra, err = GetParams(a.reader, a.out); err != nil {
		return err
	}

	if paramsPath != "" {
		if form.File, err = dataset.LoadParams(paramsPath); err != nil {
			return a.report(err)
		}
	}

	var csv string
	if csvLocation != "" {
		if csv, err = a.datasets.LoadCSV(ctx, csvLocation); err != nil {
			return a.report(err)
		}
	}

	job, err := a.training.Submit(ctx, form, csv)
	if err != nil {
		return a.report(err)
	}

	printlnFn(fmt.Sprintf("Training %s submitted", job))
	a.progress.Open(ctx, job.ID)
	return nil
}

// Progress prints the state of the followed job and its log.
func (a *App) Progress(ctx context.Context) error {
	snap := a.progress.Snapshot()
	if snap.JobID == 0 {
		printlnFn("No training is being followed")
		return nil
	}

	printlnFn(fmt.Sprintf("Job #%d: %s, %d%%", snap.JobID, snap.State, snap.Percent))
	for _, line := range snap.Log {
		printlnFn("  " + line)
	}
	return nil
}

// Stop releases the progress stream.
func (a *App) Stop(ctx context.Context) error {
	snap := a.progress.Snapshot()
	a.progress.Close()
	if snap.JobID != 0 {
		printlnFn(fmt.Sprintf("Stopped following job #%d", snap.JobID))
	}
	return nil
}

// Status prints one job; usage: status <id>.
func (a *App) Status(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: status <id>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		printlnFn("Invalid job id:", args[0])
		return nil
	}

	job, err := a.training.Get(ctx, id)
	if err != nil {
		return a.report(err)
	}

	printlnFn(job.String())
	printlnFn("  created:", formatTime(job.CreatedAt))
	printlnFn("  updated:", formatTime(job.UpdatedAt))
	if len(job.Parameters) > 0 {
		printlnFn("  parameters:", job.Parameters)
	}
	if len(job.Results) > 0 {
		printlnFn("  results:", job.Results)
	}
	return nil
}

// Summary prints the dashboard aggregate.
func (a *App) Summary(ctx context.Context) error {
	sum, err := a.training.Summary(ctx)
	if err != nil {
		return a.report(err)
	}

	printlnFn("Trainings:", sum.Count)
	printlnFn("Last training:", formatTime(sum.LastTraining))
	printlnFn(fmt.Sprintf("Success rate: %.1f%%", sum.SuccessRate))
	return nil
}

// Results lists the user's jobs.
func (a *App) Results(ctx context.Context) error {
	jobs, err := a.training.Results(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(jobs) == 0 {
		printlnFn("No trainings yet")
		return nil
	}
	for _, j := range jobs {
		printlnFn(fmt.Sprintf("%s  %s", j, formatTime(j.CreatedAt)))
	}
	return nil
}

func formatTime(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
