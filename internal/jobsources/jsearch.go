package jobsources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobsphere/internal/models"
)

// Quota meters billable calls. A slot is reserved before each request and
// released again when the provider never answered with a 2xx.
type Quota interface {
	Reserve(ctx context.Context) bool
	Release(ctx context.Context)
}

type JSearchConfig struct {
	BaseURL string
	APIKey  string
	Host    string
	Timeout time.Duration
}

// JSearchClient queries the RapidAPI JSearch endpoint.
type JSearchClient struct {
	cfg   JSearchConfig
	http  *http.Client
	quota Quota
	log   *slog.Logger
}

// NewJSearchClient builds the client. A nil quota leaves calls unmetered.
func NewJSearchClient(cfg JSearchConfig, quota Quota, logger *slog.Logger) *JSearchClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &JSearchClient{
		cfg:   cfg,
		http:  newHTTPClient(cfg.Timeout),
		quota: quota,
		log:   logger.With("component", "jsearch"),
	}
}

func (c *JSearchClient) Name() string { return jsearchSource }

type jsearchResponse struct {
	Data []jsearchJob `json:"data"`
}

type jsearchJob struct {
	ID             string  `json:"job_id"`
	Title          string  `json:"job_title"`
	Employer       string  `json:"employer_name"`
	City           string  `json:"job_city"`
	Country        string  `json:"job_country"`
	Description    *string `json:"job_description"`
	Salary         any     `json:"job_salary"`
	EmploymentType string  `json:"job_employment_type"`
	PostedAt       string  `json:"job_posted_at_datetime_utc"`
	ApplyLink      string  `json:"job_apply_link"`
}

func (c *JSearchClient) Fetch(ctx context.Context, query, location string) []models.JobPosting {
	if c.cfg.APIKey == "" {
		c.log.DebugContext(ctx, "jsearch disabled, no api key")
		return []models.JobPosting{}
	}
	if c.quota != nil && !c.quota.Reserve(ctx) {
		c.log.InfoContext(ctx, "jsearch skipped", "reason", "quota exhausted")
		return []models.JobPosting{}
	}
	jobs, billed, err := c.fetch(ctx, query, location)
	if err != nil {
		if !billed && c.quota != nil {
			c.quota.Release(ctx)
		}
		c.log.WarnContext(ctx, "jsearch fetch failed", "query", query, "billed", billed, "error", err)
		return []models.JobPosting{}
	}
	return jobs
}

// fetch reports billed once the provider has answered with a 2xx, whatever
// the body holds.
func (c *JSearchClient) fetch(ctx context.Context, query, location string) ([]models.JobPosting, bool, error) {
	search := query
	if location != "" {
		search += " in " + location
	}
	params := url.Values{
		"query":     {search},
		"page":      {"1"},
		"num_pages": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload jsearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, true, fmt.Errorf("decode response: %w", err)
	}

	jobs := make([]models.JobPosting, 0, len(payload.Data))
	for _, j := range payload.Data {
		jobs = append(jobs, j.posting())
	}
	return jobs, true, nil
}

func (j jsearchJob) posting() models.JobPosting {
	location := remote
	switch {
	case j.City != "":
		location = j.City
	case j.Country != "":
		location = j.Country
	}
	description := noDescription
	if j.Description != nil {
		description = *j.Description
	}
	return models.JobPosting{
		ID:             j.ID,
		Title:          orDefault(j.Title, notAvailable),
		Company:        orDefault(j.Employer, notAvailable),
		Location:       location,
		Description:    truncate(description),
		Salary:         formatSalary(j.Salary),
		EmploymentType: orDefault(j.EmploymentType, notAvailable),
		PostedDate:     orDefault(j.PostedAt, notAvailable),
		ApplyLink:      orDefault(j.ApplyLink, noLink),
		Source:         jsearchSource,
	}
}

func formatSalary(v any) string {
	switch s := v.(type) {
	case nil:
		return noSalary
	case string:
		return orDefault(s, noSalary)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
