package api

import (
	"context"
	"net/http"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/mailer"
	"github.com/ignite/portfolio-api/internal/pkg/httputil"
	"github.com/ignite/portfolio-api/internal/ratelimit"
	"github.com/ignite/portfolio-api/internal/service/project"
)

// ProjectService is the project behaviour the handlers need.
type ProjectService interface {
	Upload(ctx context.Context, in project.UploadInput) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Delete(ctx context.Context, id string) error
}

// Mailer delivers contact messages and reports transport connectivity.
type Mailer interface {
	Send(ctx context.Context, msg domain.ContactMessage) (mailer.Outcome, error)
	SelfTest(ctx context.Context) mailer.ConnectivityReport
}

// Limiter throttles requests per client key.
type Limiter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// Handlers contains all HTTP handlers
type Handlers struct {
	projects  ProjectService
	mail      Mailer
	limiter   Limiter
	maxUpload int64
}

// NewHandlers creates a new Handlers instance. limiter may be nil.
// maxUpload caps the multipart body of /upload-project in bytes.
func NewHandlers(projects ProjectService, mail Mailer, limiter Limiter, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		projects:  projects,
		mail:      mail,
		limiter:   limiter,
		maxUpload: maxUpload,
	}
}

// Root answers the frontend's liveness ping.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	httputil.Message(w, http.StatusOK, "Backend is running")
}
