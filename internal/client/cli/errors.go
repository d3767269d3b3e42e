package cli

import (
	"errors"

	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/common"
)

// report prints err in user terms and returns it.
func (a *App) report(err error) error {
	var (
		verr   *models.ValidationError
		apiErr *client.APIError
	)

	switch {
	case errors.As(err, &verr):
		printlnFn(verr.Message)
	case errors.As(err, &apiErr) && apiErr.Rejected():
		printlnFn("Error:", apiErr.Detail)
	case errors.Is(err, client.ErrUnavailable):
		printlnFn(msgUnavailable)
	case errors.Is(err, common.ErrorUnauthorized):
		printlnFn("Please log in first")
	default:
		printlnFn("Error:", err.Error())
	}
	return err
}
