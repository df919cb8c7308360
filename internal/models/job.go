package models

const (
	SourceAll       = "all"
	SourceJSearch   = "jsearch"
	SourceArbeitnow = "arbeitnow"
)

// JobPosting is a provider listing normalized to one shape.
type JobPosting struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	Salary         string `json:"salary"`
	EmploymentType string `json:"employment_type"`
	PostedDate     string `json:"posted_date"`
	ApplyLink      string `json:"apply_link"`
	Source         string `json:"source"`
}
