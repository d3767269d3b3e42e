package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/common"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// SessionReader exposes the current session.
type SessionReader interface {
	Session() models.Session
}

// TrainingService submits and inspects training jobs on behalf of the
// logged-in user. Every call requires an authenticated session.
type TrainingService struct {
	api     client.API
	session SessionReader
	log     logging.Logger
}

func NewTrainingService(api client.API, session SessionReader, log logging.Logger) *TrainingService {
	return &TrainingService{api: api, session: session, log: log.With("component", "training")}
}

func (s *TrainingService) requireSession() error {
	if !s.session.Session().Authenticated {
		return fmt.Errorf("%w: login required", common.ErrorUnauthorized)
	}
	return nil
}

// Submit validates form and starts a job. csv is the dataset text and may be
// empty when the parameters carry the data themselves.
func (s *TrainingService) Submit(ctx context.Context, form models.TrainingForm, csv string) (*models.Job, error) {
	params, err := form.Parameters()
	if err != nil {
		return nil, err
	}
	if err := s.requireSession(); err != nil {
		return nil, err
	}

	job, err := s.api.StartTraining(ctx, models.TrainingRequest{Parameters: params, CSVFile: csv})
	if err != nil {
		s.log.Warn(ctx, "training submission failed", "err", err)
		return nil, fmt.Errorf("start training: %w", err)
	}
	s.log.Info(ctx, "training submitted", "job_id", job.ID, "model_version", job.ModelVersion)
	return job, nil
}

// Get returns the current state of job id.
func (s *TrainingService) Get(ctx context.Context, id int64) (*models.Job, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	job, err := s.api.GetTraining(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get training %d: %w", id, err)
	}
	return job, nil
}

// Summary returns the dashboard aggregate of the current user.
func (s *TrainingService) Summary(ctx context.Context) (*models.Summary, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	sum, err := s.api.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// Results lists the user's jobs, newest first.
func (s *TrainingService) Results(ctx context.Context) ([]models.Job, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	jobs, err := s.api.Results(ctx)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	return jobs, nil
}
