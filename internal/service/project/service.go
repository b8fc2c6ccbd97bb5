package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/imagestore"
	"github.com/ignite/portfolio-api/internal/pkg/logger"
)

// MissingID is returned when a delete carries no project id.
const MissingID = "Project ID is required"

// UploadInput carries a new project and its raw image.
type UploadInput struct {
	Title       string
	Description string
	Link        string
	Image       []byte
}

// Service implements project business logic. All public methods are safe
// for concurrent use if the repository and image store are.
type Service struct {
	repo   Repository
	images ImageStore
	folder string
}

// NewService creates a project service. Images are stored under folder.
func NewService(repo Repository, images ImageStore, folder string) *Service {
	if folder == "" {
		folder = "projects"
	}
	return &Service{repo: repo, images: images, folder: folder}
}

// Upload stores the image, then persists the record. A record is never
// written without a stored image. If the write fails after the upload
// the image is left in place and logged.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*domain.Project, error) {
	p := &domain.Project{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Link:        strings.TrimSpace(in.Link),
	}
	if p.Title == "" || p.Description == "" || p.Link == "" || len(in.Image) == 0 {
		return nil, &domain.ValidationError{Field: "project", Message: domain.MissingProjectFields}
	}

	url, err := s.images.Store(ctx, in.Image, s.folder)
	if err != nil {
		switch {
		case errors.Is(err, imagestore.ErrUnsupportedImage):
			return nil, &domain.ValidationError{Field: "image", Message: "Image must be a PNG, JPEG, GIF or WEBP file"}
		case errors.Is(err, imagestore.ErrTooLarge):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrImageUpload, err)
	}
	p.ImageURL = url

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		logger.Error("project record write failed after image upload; image orphaned",
			"image_url", url, "error", err)
		return nil, fmt.Errorf("create project: %w", err)
	}

	logger.Info("project uploaded", "project_id", p.ID, "title", p.Title)
	return p, nil
}

// List returns every project, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.repo.ListByRecency(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// Get returns a single project.
func (s *Service) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes the project and, best-effort, its image. An image that
// cannot be removed never blocks the record deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ValidationError{Field: "id", Message: MissingID}
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if p.ImageURL != "" && !s.images.Remove(ctx, p.ImageURL) {
		logger.Warn("project image not removed", "project_id", id, "image_url", p.ImageURL)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if !deleted {
		// Removed concurrently between Get and Delete.
		return ErrNotFound
	}

	logger.Info("project deleted", "project_id", id)
	return nil
}

// Ping reports whether the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
