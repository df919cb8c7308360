package jobsources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"jobsphere/internal/models"
)

type ArbeitnowConfig struct {
	URL     string
	Timeout time.Duration
}

// ArbeitnowClient reads the public Arbeitnow job board feed. The feed has
// no server-side search, so filtering happens here.
type ArbeitnowClient struct {
	cfg  ArbeitnowConfig
	http *http.Client
	log  *slog.Logger
}

func NewArbeitnowClient(cfg ArbeitnowConfig, logger *slog.Logger) *ArbeitnowClient {
	return &ArbeitnowClient{
		cfg:  cfg,
		http: newHTTPClient(cfg.Timeout),
		log:  logger.With("component", "arbeitnow"),
	}
}

func (c *ArbeitnowClient) Name() string { return arbeitnowSource }

type arbeitnowResponse struct {
	Data []arbeitnowJob `json:"data"`
}

type arbeitnowJob struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	Description *string  `json:"description"`
	JobTypes    []string `json:"job_types"`
	CreatedAt   int64    `json:"created_at"`
	URL         string   `json:"url"`
}

func (c *ArbeitnowClient) Fetch(ctx context.Context, query, location string) []models.JobPosting {
	feed, err := c.fetch(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "arbeitnow fetch failed", "error", err)
		return []models.JobPosting{}
	}

	query = strings.ToLower(query)
	location = strings.ToLower(location)
	jobs := make([]models.JobPosting, 0)
	for _, j := range feed {
		if query != "" && !strings.Contains(strings.ToLower(j.Title), query) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(j.Location), location) {
			continue
		}
		jobs = append(jobs, j.posting())
	}
	return jobs
}

func (c *ArbeitnowClient) fetch(ctx context.Context) ([]arbeitnowJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload arbeitnowResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Data, nil
}

func (j arbeitnowJob) posting() models.JobPosting {
	description := noDescription
	if j.Description != nil {
		description = *j.Description
	}
	employmentType := notAvailable
	if len(j.JobTypes) > 0 {
		employmentType = orDefault(j.JobTypes[0], notAvailable)
	}
	posted := notAvailable
	if j.CreatedAt > 0 {
		posted = time.Unix(j.CreatedAt, 0).UTC().Format(time.RFC3339)
	}
	return models.JobPosting{
		ID:             j.Slug,
		Title:          orDefault(j.Title, notAvailable),
		Company:        orDefault(j.CompanyName, notAvailable),
		Location:       orDefault(j.Location, remote),
		Description:    truncate(description),
		Salary:         noSalary,
		EmploymentType: employmentType,
		PostedDate:     posted,
		ApplyLink:      orDefault(j.URL, noLink),
		Source:         arbeitnowSource,
	}
}
