package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/pkg/httputil"
	"github.com/ignite/portfolio-api/internal/service/project"
)

// Room for the text fields and multipart framing on top of the image.
const formOverhead = 1 << 20

// GetRecentProjects returns every project, newest first.
//
//	GET /get-recent-projects
func (h *Handlers) GetRecentProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		respondServiceError(w, err, msgInternal)
		return
	}
	httputil.OK(w, map[string]any{"projects": projects})
}

// UploadProject accepts a multipart form with image, projectTitle,
// projectDescription and projectLink.
//
//	POST /upload-project
func (h *Handlers) UploadProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		httputil.BadRequest(w, domain.MissingProjectFields)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := project.UploadInput{
		Title:       r.FormValue("projectTitle"),
		Description: r.FormValue("projectDescription"),
		Link:        r.FormValue("projectLink"),
	}

	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if err != nil {
			httputil.InternalError(w, err, msgImageUpload)
			return
		}
		if int64(len(data)) > h.maxUpload {
			httputil.Error(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		in.Image = data
	case !errors.Is(err, http.ErrMissingFile):
		httputil.BadRequest(w, domain.MissingProjectFields)
		return
	}

	p, err := h.projects.Upload(r.Context(), in)
	if err != nil {
		respondServiceError(w, err, msgInternal)
		return
	}

	httputil.Created(w, map[string]any{
		"message": "Project uploaded successfully",
		"project": p,
	})
}

// DeleteProject removes a project and its image.
//
//	DELETE /delete-project/{id}
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httputil.BadRequest(w, project.MissingID)
		return
	}

	if err := h.projects.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, msgInternal)
		return
	}
	httputil.Message(w, http.StatusOK, "Project deleted successfully")
}
