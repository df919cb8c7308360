package jobsources

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingQuota meters calls in memory; used is the number of slots held.
type countingQuota struct {
	limit    int32
	used     atomic.Int32
	released atomic.Int32
}

func newCountingQuota(limit int32) *countingQuota { return &countingQuota{limit: limit} }

func (q *countingQuota) Reserve(context.Context) bool {
	for {
		n := q.used.Load()
		if n >= q.limit {
			return false
		}
		if q.used.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (q *countingQuota) Release(context.Context) {
	q.used.Add(-1)
	q.released.Add(1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short...", truncate("short"))

	long := strings.Repeat("ä", 400)
	got := truncate(long)
	assert.Equal(t, 303, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "Not specified", formatSalary(nil))
	assert.Equal(t, "Not specified", formatSalary(""))
	assert.Equal(t, "90k", formatSalary("90k"))
	assert.Equal(t, "85000", formatSalary(float64(85000)))
	assert.Equal(t, "42.5", formatSalary(42.5))
}

const jsearchBody = `{
  "status": "OK",
  "data": [
    {
      "job_id": "j-1",
      "job_title": "Go Developer",
      "employer_name": "Acme",
      "job_city": "Berlin",
      "job_country": "DE",
      "job_description": "Build services.",
      "job_salary": 85000,
      "job_employment_type": "FULLTIME",
      "job_posted_at_datetime_utc": "2026-10-01T00:00:00.000Z",
      "job_apply_link": "https://acme.example/apply"
    },
    {
      "job_id": "j-2",
      "job_city": null,
      "job_country": "US",
      "job_salary": null
    },
    {"job_id": "j-3"}
  ]
}`

func TestJSearchClient_Fetch(t *testing.T) {
	var gotQuery, gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "1", r.URL.Query().Get("num_pages"))
		gotKey = r.Header.Get("x-rapidapi-key")
		gotHost = r.Header.Get("x-rapidapi-host")
		_, _ = io.WriteString(w, jsearchBody)
	}))
	defer srv.Close()

	usage := newCountingQuota(200)
	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL + "/", APIKey: "k", Host: "jsearch.p.rapidapi.com"}, usage, discardLogger())

	jobs := c.Fetch(context.Background(), "golang", "Berlin")
	require.Len(t, jobs, 3)
	assert.Equal(t, "golang in Berlin", gotQuery)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "jsearch.p.rapidapi.com", gotHost)
	assert.Equal(t, int32(1), usage.used.Load())
	assert.Zero(t, usage.released.Load())

	first := jobs[0]
	assert.Equal(t, "j-1", first.ID)
	assert.Equal(t, "Go Developer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "Berlin", first.Location)
	assert.Equal(t, "Build services....", first.Description)
	assert.Equal(t, "85000", first.Salary)
	assert.Equal(t, "FULLTIME", first.EmploymentType)
	assert.Equal(t, "https://acme.example/apply", first.ApplyLink)
	assert.Equal(t, "JSearch", first.Source)

	assert.Equal(t, "US", jobs[1].Location)
	assert.Equal(t, "Not specified", jobs[1].Salary)

	bare := jobs[2]
	assert.Equal(t, "N/A", bare.Title)
	assert.Equal(t, "N/A", bare.Company)
	assert.Equal(t, "Remote", bare.Location)
	assert.Equal(t, "No description...", bare.Description)
	assert.Equal(t, "N/A", bare.EmploymentType)
	assert.Equal(t, "N/A", bare.PostedDate)
	assert.Equal(t, "#", bare.ApplyLink)
}

func TestJSearchClient_NoLocationQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL, APIKey: "k"}, nil, discardLogger())
	jobs := c.Fetch(context.Background(), "golang", "")
	assert.Empty(t, jobs)
	assert.NotNil(t, jobs)
	assert.Equal(t, "golang", gotQuery)
}

func TestJSearchClient_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantUsage int32
	}{
		{
			name:    "status error refunded",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
		},
		{
			name:      "bad json still billed",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "{not json") },
			wantUsage: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			usage := newCountingQuota(200)
			c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL, APIKey: "k"}, usage, discardLogger())
			jobs := c.Fetch(context.Background(), "go", "")
			assert.Empty(t, jobs)
			assert.NotNil(t, jobs)
			assert.Equal(t, tt.wantUsage, usage.used.Load())
		})
	}
}

func TestJSearchClient_TimeoutYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	usage := newCountingQuota(200)
	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 20 * time.Millisecond}, usage, discardLogger())
	assert.Empty(t, c.Fetch(context.Background(), "go", ""))
	assert.Zero(t, usage.used.Load())
	assert.Equal(t, int32(1), usage.released.Load())
}

func TestJSearchClient_NoKeySkipsCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	usage := newCountingQuota(200)
	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL}, usage, discardLogger())
	assert.Empty(t, c.Fetch(context.Background(), "go", ""))
	assert.Zero(t, hits.Load())
	assert.Zero(t, usage.used.Load())
}

func TestJSearchClient_QuotaSpentSkipsCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	usage := newCountingQuota(1)
	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL, APIKey: "k"}, usage, discardLogger())
	ctx := context.Background()

	c.Fetch(ctx, "go", "")
	c.Fetch(ctx, "go", "")
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int32(1), usage.used.Load())
}

func TestJSearchClient_ConcurrentFetchHoldsCap(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	usage := newCountingQuota(3)
	c := NewJSearchClient(JSearchConfig{BaseURL: srv.URL, APIKey: "k"}, usage, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Fetch(context.Background(), "go", "")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int32(3), usage.used.Load())
}

const arbeitnowBody = `{
  "data": [
    {
      "slug": "go-dev-berlin",
      "title": "Senior Golang Engineer",
      "company_name": "Acme",
      "location": "Berlin",
      "description": "Write Go.",
      "job_types": ["full time", "remote"],
      "created_at": 1760000000,
      "url": "https://arbeitnow.example/go-dev-berlin"
    },
    {
      "slug": "php-munich",
      "title": "PHP Developer",
      "company_name": "Other",
      "location": "Munich",
      "job_types": [],
      "created_at": 1760000000
    },
    {
      "slug": "golang-munich",
      "title": "golang backend",
      "company_name": "Beta",
      "location": "Munich"
    }
  ]
}`

func newArbeitnowServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, arbeitnowBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArbeitnowClient_Filters(t *testing.T) {
	srv := newArbeitnowServer(t)
	c := NewArbeitnowClient(ArbeitnowConfig{URL: srv.URL}, discardLogger())
	ctx := context.Background()

	assert.Len(t, c.Fetch(ctx, "", ""), 3)

	golang := c.Fetch(ctx, "GOLANG", "")
	require.Len(t, golang, 2)
	assert.Equal(t, "go-dev-berlin", golang[0].ID)
	assert.Equal(t, "golang-munich", golang[1].ID)

	berlin := c.Fetch(ctx, "golang", "berlin")
	require.Len(t, berlin, 1)

	assert.Empty(t, c.Fetch(ctx, "rust", ""))
}

func TestArbeitnowClient_Normalizes(t *testing.T) {
	srv := newArbeitnowServer(t)
	c := NewArbeitnowClient(ArbeitnowConfig{URL: srv.URL}, discardLogger())

	jobs := c.Fetch(context.Background(), "", "")
	require.Len(t, jobs, 3)

	first := jobs[0]
	assert.Equal(t, "Senior Golang Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "Write Go....", first.Description)
	assert.Equal(t, "Not specified", first.Salary)
	assert.Equal(t, "full time", first.EmploymentType)
	assert.Equal(t, time.Unix(1760000000, 0).UTC().Format(time.RFC3339), first.PostedDate)
	assert.Equal(t, "https://arbeitnow.example/go-dev-berlin", first.ApplyLink)
	assert.Equal(t, "Arbeitnow", first.Source)

	assert.Equal(t, "N/A", jobs[1].EmploymentType)
	assert.Equal(t, "No description...", jobs[1].Description)
	assert.Equal(t, "#", jobs[1].ApplyLink)

	assert.Equal(t, "N/A", jobs[2].PostedDate)
}

func TestArbeitnowClient_FailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewArbeitnowClient(ArbeitnowConfig{URL: srv.URL}, discardLogger())
	jobs := c.Fetch(context.Background(), "go", "")
	assert.Empty(t, jobs)
	assert.NotNil(t, jobs)
}
