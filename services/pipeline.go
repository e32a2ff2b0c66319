package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute matches the Gemini free-tier quota.
const DefaultRequestsPerMinute = 15

type CandidateGenerator interface {
	GenerateCandidates(ctx context.Context, level models.Level, domain models.Domain) ([]models.Candidate, error)
}

// ProjectStore is the durable store accepted projects are appended to.
type ProjectStore interface {
	InsertProject(project *models.GeneratedProject) error
}

// Pipeline runs generate -> novelty filter -> persist for (level, domain) pairs.
type Pipeline struct {
	generator CandidateGenerator
	novelty   NoveltyChecker
	store     ProjectStore
	limiter   *rate.Limiter
	breaker   *CircuitBreakerState
	now       func() time.Time
	newID     func() uuid.UUID
	logger    zerolog.Logger
}

type PipelineOption func(*Pipeline)

func WithProjectStore(store ProjectStore) PipelineOption {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithLimiter replaces the token bucket shared by every model call.
func WithLimiter(limiter *rate.Limiter) PipelineOption {
	return func(p *Pipeline) {
		p.limiter = limiter
	}
}

func WithBreaker(breaker *CircuitBreakerState) PipelineOption {
	return func(p *Pipeline) {
		p.breaker = breaker
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewRequestLimiter allows requestsPerMinute calls with no burst.
func NewRequestLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func NewPipeline(generator CandidateGenerator, novelty NoveltyChecker, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		generator: generator,
		novelty:   novelty,
		now:       time.Now,
		newID:     uuid.New,
		logger:    log.With().Str("service", "pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.novelty == nil {
		p.novelty = AlwaysAccept{}
	}
	if p.limiter == nil {
		p.limiter = NewRequestLimiter(DefaultRequestsPerMinute)
	}
	if p.breaker == nil {
		p.breaker = NewCircuitBreakerState(DefaultBreakerCooldown, p.now)
	}
	return p
}

func (p *Pipeline) BreakerState() BreakerState {
	return p.breaker.State()
}

// GenerateForLevel generates one batch for (level, domain). Candidates are
// checked and persisted in order; the first failure stops the batch and the
// projects accepted before it are returned with the error.
func (p *Pipeline) GenerateForLevel(ctx context.Context, level models.Level, domain models.Domain) ([]models.Project, error) {
	logger := p.logger.With().Str("level", string(level)).Str("domain", string(domain)).Logger()

	if !p.breaker.Allow() {
		return nil, errs.NewCircuitOpenError("gemini")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		p.breaker.RecordOtherFailure()
		return nil, err
	}

	candidates, err := p.generator.GenerateCandidates(ctx, level, domain)
	if err != nil {
		if errs.IsRateLimitError(err) {
			p.breaker.RecordRateLimited()
			logger.Warn().Msg("model rate limited, breaker open")
		} else {
			p.breaker.RecordOtherFailure()
		}
		return nil, err
	}
	p.breaker.RecordSuccess()

	accepted := make([]models.Project, 0, len(candidates))
	rejected := 0
	for _, c := range candidates {
		tooSimilar, err := p.novelty.IsTooSimilar(ctx, c.SimilarityText(), level)
		if err != nil {
			return accepted, fmt.Errorf("novelty check %q: %w", c.Title, err)
		}
		if tooSimilar {
			rejected++
			continue
		}

		row := models.NewGeneratedProject(p.newID(), level, c, p.now())
		if p.store != nil {
			if err := p.store.InsertProject(&row); err != nil {
				return accepted, errs.NewDatabaseError("insert", "generated project", err)
			}
		}

		// The vector index is a shadow of the durable store; a failed upsert
		// leaves the inserted row in place.
		project := row.ToProject()
		if err := p.novelty.Remember(ctx, level, project); err != nil {
			return accepted, fmt.Errorf("remember %q: %w", c.Title, err)
		}
		accepted = append(accepted, project)
	}

	logger.Info().Int("candidates", len(candidates)).Int("accepted", len(accepted)).Int("rejected", rejected).Msg("generated batch")
	return accepted, nil
}

// GenerateAllDomainsForLevel runs every domain for level in order. Failures
// in one domain do not stop the others, except a configuration error which
// aborts at once. Domains reached while the breaker is open are skipped and
// the call then reports a rate-limit error alongside whatever was accepted.
func (p *Pipeline) GenerateAllDomainsForLevel(ctx context.Context, level models.Level) ([]models.Project, error) {
	var (
		all         []models.Project
		rateLimited bool
		lastErr     error
	)

	for _, domain := range models.Domains {
		if p.breaker.State() == BreakerOpen {
			rateLimited = true
			p.logger.Warn().Str("level", string(level)).Str("domain", string(domain)).Msg("breaker open, skipping domain")
			continue
		}

		projects, err := p.GenerateForLevel(ctx, level, domain)
		all = append(all, projects...)
		if err == nil {
			continue
		}

		p.logger.Error().Err(err).Str("level", string(level)).Str("domain", string(domain)).Int("accepted", len(projects)).Msg("domain generation failed")
		switch {
		case errs.IsConfigError(err):
			return all, err
		case errs.IsRateLimitError(err), errs.IsCircuitOpenError(err):
			rateLimited = true
		case ctx.Err() != nil:
			return all, ctx.Err()
		default:
			lastErr = err
		}
	}

	if rateLimited {
		return all, errs.NewRateLimitError("gemini", 0)
	}
	if len(all) == 0 && lastErr != nil {
		return all, lastErr
	}
	return all, nil
}

// GenerateAllLevels runs GenerateAllDomainsForLevel for every level.
func (p *Pipeline) GenerateAllLevels(ctx context.Context) (map[models.Level][]models.Project, error) {
	results := make(map[models.Level][]models.Project, len(models.Levels))
	var levelErrs []error

	for _, level := range models.Levels {
		projects, err := p.GenerateAllDomainsForLevel(ctx, level)
		results[level] = projects
		if err != nil {
			levelErrs = append(levelErrs, fmt.Errorf("%s: %w", level, err))
			if errs.IsConfigError(err) || ctx.Err() != nil {
				break
			}
		}
	}
	return results, errors.Join(levelErrs...)
}
