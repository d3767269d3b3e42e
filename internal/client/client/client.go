package client

import (
	"context"

	"github.com/dmitrijs2005/trainctl/internal/client/models"
)

// API is the training service as seen by the client services.
type API interface {
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	Register(ctx context.Context, email, password string) (*models.User, error)
	StartTraining(ctx context.Context, req models.TrainingRequest) (*models.Job, error)
	GetTraining(ctx context.Context, id int64) (*models.Job, error)
	Summary(ctx context.Context) (*models.Summary, error)
	Results(ctx context.Context) ([]models.Job, error)

	// SetAuthToken installs the bearer credential for all later requests.
	SetAuthToken(token string)
	// ClearAuthToken removes the Authorization header.
	ClearAuthToken()
}
