package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UnitVectorY-Labs/buildbadges/internal/models"
	"github.com/UnitVectorY-Labs/buildbadges/internal/relocator"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const DefaultWorkerCount = 10

// Options configures an audit run.
type Options struct {
	Org            string
	OutputDir      string
	Token          string
	IncludePrivate bool
	// Badges supplies the template and public URL of relocated badges.
	Badges relocator.Config
	// BaseURL overrides the GitHub API endpoint (GitHub Enterprise, tests).
	BaseURL string
}

// Run audits every repository of the organization and writes one record
// per repository plus summary.json to the output directory.
func Run(ctx context.Context, opts Options) (models.AuditSummary, error) {
	client, err := newClient(ctx, opts)
	if err != nil {
		return models.AuditSummary{}, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return models.AuditSummary{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	// 1. List all repositories
	fmt.Printf("Fetching repositories for org: %s...\n", opts.Org)
	var allRepos []*github.Repository
	listOpt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := client.Repositories.ListByOrg(ctx, opts.Org, listOpt)
		if err != nil {
			return models.AuditSummary{}, fmt.Errorf("failed to list repositories: %w", err)
		}
		allRepos = append(allRepos, repos...)
		if resp.NextPage == 0 {
			break
		}
		listOpt.Page = resp.NextPage
	}
	fmt.Printf("Found %d repositories.\n", len(allRepos))

	if !opts.IncludePrivate {
		var publicRepos []*github.Repository
		for _, repo := range allRepos {
			if !repo.GetPrivate() {
				publicRepos = append(publicRepos, repo)
			}
		}
		fmt.Printf("Filtered to %d public repositories.\n", len(publicRepos))
		allRepos = publicRepos
	}

	// 2. Worker pool for fetching READMEs
	type result struct {
		record models.AuditRecord
		err    error
	}
	jobs := make(chan *github.Repository, len(allRepos))
	results := make(chan result, len(allRepos))
	var wg sync.WaitGroup

	for i := 0; i < DefaultWorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				rec, err := auditRepo(ctx, client, repo, opts)
				results <- result{record: rec, err: err}
			}
		}()
	}

	for _, repo := range allRepos {
		jobs <- repo
	}
	close(jobs)

	wg.Wait()
	close(results)

	summary := models.AuditSummary{
		Organization: opts.Org,
		LastAudited:  time.Now().UTC().Format(time.RFC3339Nano),
		ReposMissing: []string{},
	}
	for res := range results {
		if res.err != nil {
			fmt.Printf("Error processing repo: %v\n", res.err)
			summary.Errors++
			continue
		}
		summary.TotalRepos++
		if res.record.BadgeReferenced {
			summary.ReposReferenced++
		} else {
			summary.ReposMissing = append(summary.ReposMissing, res.record.Repository)
		}
	}
	sort.Strings(summary.ReposMissing)

	fmt.Printf("Audit complete. Referenced: %d/%d Errors: %d\n", summary.ReposReferenced, summary.TotalRepos, summary.Errors)

	if err := writeJSON(filepath.Join(opts.OutputDir, "summary.json"), summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func newClient(ctx context.Context, opts Options) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: opts.Token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

func auditRepo(ctx context.Context, client *github.Client, repo *github.Repository, opts Options) (models.AuditRecord, error) {
	repoName := repo.GetName()
	defaultBranch := repo.GetDefaultBranch()

	readme, _, err := client.Repositories.GetReadme(ctx, repo.GetOwner().GetLogin(), repoName, nil)

	rec := models.AuditRecord{
		Repository:       repoName,
		RepositoryURL:    repo.GetHTMLURL(),
		DefaultBranch:    defaultBranch,
		ExpectedBadgeURL: opts.Badges.BadgeURL(repoName, defaultBranch),
	}

	if err != nil && !isNotFound(err) {
		return rec, fmt.Errorf("failed to fetch readme for %s: %w", repoName, err)
	}
	if err == nil && readme != nil {
		rec.ReadmeFound = true
		content, err := readme.GetContent()
		if err != nil {
			return rec, fmt.Errorf("failed to decode readme for %s: %w", repoName, err)
		}
		rec.Badges = extractBadges([]byte(content))
		rec.BadgeReferenced = referencesBadge(rec.Badges, rec.ExpectedBadgeURL)
	}

	filename := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", normalizeRepoName(repoName)))
	return rec, writeJSON(filename, rec)
}

// isNotFound reports whether err is a GitHub 404, meaning the repository
// has no README.
func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func normalizeRepoName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "/", "-")
}
