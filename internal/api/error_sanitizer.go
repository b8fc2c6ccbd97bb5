package api

import (
	"errors"
	"net/http"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/imagestore"
	"github.com/ignite/portfolio-api/internal/mailer"
	"github.com/ignite/portfolio-api/internal/pkg/httputil"
	"github.com/ignite/portfolio-api/internal/service/project"
)

// Public texts for upstream failures. Internal errors (SQL, S3, SMTP
// replies) are logged server-side and never sent to the client.
const (
	msgInternal         = "Internal server error"
	msgImageUpload      = "Image upload failed"
	msgImageTooLarge    = "Image exceeds the upload size limit"
	msgProjectNotFound  = "Project not found"
	msgMailUnconfigured = "mail service is not configured"
)

// respondServiceError maps a service-layer error to a status code and a
// public-safe message. publicMsg is used for anything unrecognised.
func respondServiceError(w http.ResponseWriter, err error, publicMsg string) {
	var (
		verr   *domain.ValidationError
		cfgErr *mailer.ConfigurationError
	)
	switch {
	case errors.As(err, &verr):
		httputil.BadRequest(w, verr.Message)
	case errors.Is(err, project.ErrNotFound):
		httputil.NotFound(w, msgProjectNotFound)
	case errors.Is(err, imagestore.ErrTooLarge):
		httputil.Error(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
	case errors.Is(err, project.ErrImageUpload):
		httputil.InternalError(w, err, msgImageUpload)
	case errors.As(err, &cfgErr):
		httputil.InternalError(w, err, msgMailUnconfigured)
	default:
		if publicMsg == "" {
			publicMsg = msgInternal
		}
		httputil.InternalError(w, err, publicMsg)
	}
}
