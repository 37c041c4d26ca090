package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/metrics"
	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*store.Project, error)
	GetProfileByUserID(ctx context.Context, userID string) (*store.Profile, error)
	ListRecentProfiles(ctx context.Context, limit int) ([]*store.Profile, error)
	ListRecentPublishedProjects(ctx context.Context, limit int) ([]*store.Project, error)
	UpsertMatchResult(ctx context.Context, m *store.MatchResult) error
}

// Match is one ranked entry in a run's output.
type Match struct {
	TargetID string   `json:"targetId"`
	Name     string   `json:"name"`
	Title    string   `json:"title,omitempty"`
	Sector   string   `json:"sector,omitempty"`
	Score    int      `json:"score"`
	Reason   string   `json:"reason"`
	Pros     []string `json:"pros"`
	Cons     []string `json:"cons"`
	Status   string   `json:"status"`
}

// Result is the outcome of one orchestration run.
type Result struct {
	Matches []Match `json:"matches"`

	// PersistenceDegraded reports that at least one verdict could not be
	// saved. The ranked list is still complete.
	PersistenceDegraded bool `json:"persistenceDegraded,omitempty"`
}

// Orchestrator runs batch compatibility checks with bounded concurrency.
type Orchestrator struct {
	store          Store
	scorer         ai.Scorer
	logger         *zap.Logger
	candidateLimit int
	concurrency    int
}

// NewOrchestrator wires the orchestrator. candidateLimit caps how many recent
// candidates a run considers; concurrency caps in-flight scoring calls.
func NewOrchestrator(st Store, scorer ai.Scorer, log *zap.Logger, candidateLimit, concurrency int) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if candidateLimit <= 0 {
		candidateLimit = 5
	}
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Orchestrator{
		store:          st,
		scorer:         scorer,
		logger:         log,
		candidateLimit: candidateLimit,
		concurrency:    concurrency,
	}
}

// Run scores the pivot against its candidate pool and persists every verdict.
// callerID must identify an authenticated user. Individual candidate failures
// degrade to fallback entries; only pivot resolution errors fail the run.
func (o *Orchestrator) Run(ctx context.Context, callerID string, pivot PivotType, pivotID string) (*Result, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if pivotID == "" || (pivot != PivotProject && pivot != PivotProfile) {
		return nil, ErrInvalidRequest
	}

	metrics.MatchRuns.WithLabelValues(string(pivot)).Inc()

	switch pivot {
	case PivotProject:
		return o.runForProject(ctx, pivotID)
	default:
		return o.runForProfile(ctx, callerID, pivotID)
	}
}

func (o *Orchestrator) runForProject(ctx context.Context, projectID string) (*Result, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	profiles, err := o.store.ListRecentProfiles(ctx, o.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidate profiles: %w", err)
	}

	source := serialize(project)
	matches := make([]Match, len(profiles))
	degraded := o.scoreAll(ctx, len(profiles), func(i int) *store.MatchResult {
		profile := profiles[i]
		assessment := o.scorer.Score(ctx, source, serialize(profile), ai.ProjectToTalent)

		match := Match{
			TargetID: profile.UserID,
			Title:    profile.Title,
			Score:    assessment.Score,
			Reason:   assessment.Reason,
			Pros:     assessment.Pros,
			Cons:     assessment.Cons,
			Status:   assessment.Status,
		}
		if profile.User != nil {
			match.Name = profile.User.Name
		}
		matches[i] = match

		return &store.MatchResult{
			ProjectID: project.ID,
			UserID:    profile.UserID,
			Score:     assessment.Score,
			Reason:    assessment.Reason,
			Pros:      assessment.Pros,
			Cons:      assessment.Cons,
			Status:    assessment.Status,
		}
	})

	sortByScore(matches)
	return &Result{Matches: matches, PersistenceDegraded: degraded}, nil
}

func (o *Orchestrator) runForProfile(ctx context.Context, callerID, pivotID string) (*Result, error) {
	userID := pivotID
	if pivotID == CurrentProfile {
		userID = callerID
	}

	profile, err := o.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile for user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	projects, err := o.store.ListRecentPublishedProjects(ctx, o.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidate projects: %w", err)
	}

	source := serialize(profile)
	matches := make([]Match, len(projects))
	degraded := o.scoreAll(ctx, len(projects), func(i int) *store.MatchResult {
		project := projects[i]
		assessment := o.scorer.Score(ctx, source, serialize(project), ai.TalentToProject)

		matches[i] = Match{
			TargetID: project.ID,
			Name:     project.Name,
			Sector:   project.Sector,
			Score:    assessment.Score,
			Reason:   assessment.Reason,
			Pros:     assessment.Pros,
			Cons:     assessment.Cons,
			Status:   assessment.Status,
		}

		return &store.MatchResult{
			ProjectID: project.ID,
			UserID:    profile.UserID,
			Score:     assessment.Score,
			Reason:    assessment.Reason,
			Pros:      assessment.Pros,
			Cons:      assessment.Cons,
			Status:    assessment.Status,
		}
	})

	sortByScore(matches)
	return &Result{Matches: matches, PersistenceDegraded: degraded}, nil
}

// scoreAll fans n candidate jobs out to a bounded worker pool. Each job
// scores its candidate, writes the ranked entry into its slot and returns the
// verdict to persist. Reports whether any upsert failed.
func (o *Orchestrator) scoreAll(ctx context.Context, n int, job func(i int) *store.MatchResult) bool {
	if n == 0 {
		return false
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded bool
	)

	jobs := make(chan int)
	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result := job(i)
				if err := o.store.UpsertMatchResult(ctx, result); err != nil {
					metrics.MatchUpsertFailures.Inc()
					o.logger.Warn("match result not persisted",
						zap.String("project_id", result.ProjectID),
						zap.String("user_id", result.UserID),
						zap.Error(err),
					)
					mu.Lock()
					degraded = true
					mu.Unlock()
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return degraded
}

func sortByScore(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
