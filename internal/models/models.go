package models

// Badge represents a single badge found in a README.
type Badge struct {
	AltText    string `json:"alt_text"`
	ImageURL   string `json:"image_url"`
	TargetURL  string `json:"target_url"`
	HostImage  string `json:"host_image"`
	HostTarget string `json:"host_target"`
}

// AuditRecord is the audit result for a single repository.
type AuditRecord struct {
	Repository       string  `json:"repository"`
	RepositoryURL    string  `json:"repository_url"`
	DefaultBranch    string  `json:"default_branch"`
	ReadmeFound      bool    `json:"readme_found"`
	Badges           []Badge `json:"badges"`
	ExpectedBadgeURL string  `json:"expected_badge_url"`
	BadgeReferenced  bool    `json:"badge_referenced"`
}

// AuditSummary aggregates one audit run.
type AuditSummary struct {
	Organization    string   `json:"organization"`
	LastAudited     string   `json:"last_audited"`
	TotalRepos      int      `json:"total_repos"`
	ReposReferenced int      `json:"repos_referenced"`
	ReposMissing    []string `json:"repos_missing"`
	Errors          int      `json:"errors"`
}
