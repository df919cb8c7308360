package services

import (
	"context"
	"log/slog"
	"strings"

	"jobsphere/internal/models"
)

const (
	maxRecommendTitles = 2
	maxRecommended     = 10

	HintSetPreferences = "Set preferences first"
)

// JobSource is a job board adapter. Fetch never fails: provider errors
// come back as an empty slice.
type JobSource interface {
	Name() string
	Fetch(ctx context.Context, query, location string) []models.JobPosting
}

type JobService interface {
	Search(ctx context.Context, query, location, source string) []models.JobPosting
	// Recommend returns postings matching the user's preferences, and a
	// hint for the client when there is nothing to match on.
	Recommend(ctx context.Context, user *models.User) ([]models.JobPosting, string)
}

type jobService struct {
	arbeitnow JobSource
	jsearch   JobSource
	log       *slog.Logger
}

// NewJobService aggregates the free feed and the quota-limited one. The
// JSearch source meters its own calls.
func NewJobService(arbeitnow, jsearch JobSource, logger *slog.Logger) JobService {
	return &jobService{
		arbeitnow: arbeitnow,
		jsearch:   jsearch,
		log:       logger.With("component", "jobs"),
	}
}

func (s *jobService) Search(ctx context.Context, query, location, source string) []models.JobPosting {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = models.SourceAll
	}
	jobs := make([]models.JobPosting, 0)

	if source == models.SourceAll || source == models.SourceArbeitnow {
		jobs = append(jobs, s.arbeitnow.Fetch(ctx, query, location)...)
	}
	if source == models.SourceAll || source == models.SourceJSearch {
		jobs = append(jobs, s.jsearch.Fetch(ctx, query, location)...)
	}

	s.log.DebugContext(ctx, "search done", "query", query, "location", location, "source", source, "results", len(jobs))
	return jobs
}

type postingKey struct{ title, company string }

func (s *jobService) Recommend(ctx context.Context, user *models.User) ([]models.JobPosting, string) {
	titles := models.SplitList(user.PreferredJobTitles)
	if len(titles) == 0 {
		return []models.JobPosting{}, HintSetPreferences
	}
	if len(titles) > maxRecommendTitles {
		titles = titles[:maxRecommendTitles]
	}
	location := ""
	if locs := models.SplitList(user.PreferredLocations); len(locs) > 0 {
		location = locs[0]
	}

	seen := make(map[postingKey]struct{})
	out := make([]models.JobPosting, 0, maxRecommended)
	for _, title := range titles {
		for _, job := range s.arbeitnow.Fetch(ctx, title, location) {
			k := postingKey{job.Title, job.Company}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, job)
		}
	}
	if len(out) > maxRecommended {
		out = out[:maxRecommended]
	}
	return out, ""
}
