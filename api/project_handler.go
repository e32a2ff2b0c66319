package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"github.com/wayBiggger/way-bigger-sub000/services"
	"github.com/wayBiggger/way-bigger-sub000/storage"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	local     storage.ProjectCache
	cloud     storage.ProjectCache
	store     ActiveProjectReader
	generator ProjectGenerator
}

func newProjectHandler(deps Dependencies) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		local:     deps.LocalCache,
		cloud:     deps.CloudCache,
		store:     deps.Store,
		generator: deps.Generator,
	}
}

func levelParam(r *http.Request) (models.Level, error) {
	level, err := models.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		return "", errs.NewInvalidFieldError("level", err.Error())
	}
	return level, nil
}

// readThrough walks local cache, cloud cache and the durable store in that
// order and returns the first non-empty list. Tier failures are logged and
// skipped.
func (h projectHandler) readThrough(ctx context.Context, level models.Level) []models.Project {
	logger := h.logger.With().Str("level", string(level)).Logger()

	for _, cache := range []storage.ProjectCache{h.local, h.cloud} {
		if cache == nil {
			continue
		}
		projects, err := cache.GetProjects(ctx, level)
		if err != nil {
			logger.Warn().Err(err).Str("cache", cache.Name()).Msg("cache read failed, trying next tier")
			continue
		}
		if len(projects) > 0 {
			logger.Debug().Str("cache", cache.Name()).Int("count", len(projects)).Msg("served from cache")
			return projects
		}
	}

	if h.store == nil {
		return nil
	}
	rows, err := h.store.GetActiveProjectsByLevel(level)
	if err != nil {
		logger.Warn().Err(err).Msg("durable store read failed")
		return nil
	}
	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.ToProject())
	}
	return projects
}

// getProjects returns the projects for a level
// @Summary Get projects for a level
// @Description Reads through local cache, cloud cache and database. When every tier is empty a fallback list is synthesized and cached locally.
// @Tags Projects
// @Produce json
// @Param level path string true "beginner, intermediate or advanced"
// @Success 200 {array} models.Project
// @Failure 400 {object} ErrorResponse "Unknown level"
// @Router /projects/{level} [get]
func (h projectHandler) getProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, err := levelParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		ctx := r.Context()
		projects := h.readThrough(ctx, level)
		if len(projects) == 0 {
			projects = services.Synthesize(level)
			if err := h.local.StoreProjects(ctx, level, projects); err != nil {
				h.logger.Warn().Err(err).Str("level", string(level)).Msg("failed to cache fallback projects")
			}
		}

		h.responder.WriteJSON(w, projects)
	}
}

// generateProjects runs a generation batch for every domain of a level
// @Summary Generate projects for a level
// @Description Generates, deduplicates and stores new projects. When nothing is accepted the fallback list is stored and returned instead.
// @Tags Projects
// @Produce json
// @Param level path string true "beginner, intermediate or advanced"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} ErrorResponse "Unknown level"
// @Failure 500 {object} ErrorResponse "Failed to store projects"
// @Router /projects/generate/{level} [post]
func (h projectHandler) generateProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, err := levelParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		// A client hang-up must not abandon rows half way through a batch.
		ctx := context.WithoutCancel(r.Context())
		logger := h.logger.With().Str("level", string(level)).Logger()

		projects, genErr := h.generator.GenerateAllDomainsForLevel(ctx, level)
		if len(projects) > 0 {
			if genErr != nil {
				logger.Warn().Err(genErr).Int("accepted", len(projects)).Msg("generation finished with errors")
			}
			if err := h.storeGenerated(ctx, level, projects); err != nil {
				h.responder.WriteError(w, err)
				return
			}
			h.responder.WriteJSON(w, GenerateResponse{
				Message:  fmt.Sprintf("Generated %d projects for %s across all domains", len(projects), level),
				Projects: projects,
			})
			return
		}

		if genErr != nil {
			logger.Warn().Err(genErr).Msg("generation produced nothing, serving fallback")
		}
		mock := services.Synthesize(level)
		if err := h.local.StoreProjects(ctx, level, mock); err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("Failed to store projects", err))
			return
		}
		h.responder.WriteJSON(w, GenerateResponse{
			Message:  fmt.Sprintf("Generated %d mock projects for %s across all domains (%s)", len(mock), level, fallbackReason(genErr)),
			Projects: mock,
		})
	}
}

// storeGenerated writes to the local cache, then mirrors to the cloud cache
// when one is configured. Only the local write is fatal.
func (h projectHandler) storeGenerated(ctx context.Context, level models.Level, projects []models.Project) error {
	if err := h.local.StoreProjects(ctx, level, projects); err != nil {
		return errs.NewInternalErrorWithCause("Failed to store projects", err)
	}
	if h.cloud != nil {
		if err := h.cloud.StoreProjects(ctx, level, projects); err != nil {
			h.logger.Warn().Err(err).Str("cache", h.cloud.Name()).Str("level", string(level)).Msg("cloud cache write failed")
		}
	}
	return nil
}

func fallbackReason(err error) string {
	switch {
	case err == nil:
		return "no new projects accepted"
	case errs.IsRateLimitError(err), errs.IsCircuitOpenError(err):
		return "API rate limited"
	case errs.IsConfigError(err):
		return "content generator not configured"
	default:
		return "generation failed"
	}
}

// deleteProjects removes the local cache file for a level
// @Summary Delete cached projects for a level
// @Description Only the local cache is cleared. Deleting an absent level succeeds.
// @Tags Projects
// @Produce json
// @Param level path string true "beginner, intermediate or advanced"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Unknown level"
// @Failure 500 {object} ErrorResponse "Failed to delete projects"
// @Router /projects/{level} [delete]
func (h projectHandler) deleteProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, err := levelParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.local.DeleteProjects(r.Context(), level); err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("Failed to delete projects", err))
			return
		}

		h.responder.WriteJSON(w, MessageResponse{
			Message: fmt.Sprintf("Deleted all %s projects from local storage", level),
		})
	}
}

// getAllProjects returns every cached level
// @Summary Get all cached projects
// @Tags Projects
// @Produce json
// @Success 200 {object} map[string][]models.Project
// @Failure 500 {object} ErrorResponse "Failed to get all projects"
// @Router /projects/all [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := h.local.GetAllProjects(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("Failed to get all projects", err))
			return
		}
		h.responder.WriteJSON(w, all)
	}
}

// getProjectStats returns per-level counts of the local cache
// @Summary Get project statistics
// @Tags Projects
// @Produce json
// @Success 200 {object} models.ProjectStats
// @Failure 500 {object} ErrorResponse "Failed to get project statistics"
// @Router /projects/stats [get]
func (h projectHandler) getProjectStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.local.GetProjectStats(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("Failed to get project statistics", err))
			return
		}
		h.responder.WriteJSON(w, stats)
	}
}
