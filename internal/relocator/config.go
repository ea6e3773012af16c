package relocator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultExpectedRepo   = "arcs"
	defaultExpectedBranch = "master"
	defaultStoreURL       = "file://./blobs"
)

// Config is loaded once at process start and passed to New.
type Config struct {
	Bucket         string
	Template       Template
	ExpectedRepo   string // empty accepts any repository
	ExpectedBranch string // empty accepts any branch
	StoreURL       string
	PublicURL      string
}

// fileConfig is the YAML overlay. Pointers distinguish "unset" from "".
type fileConfig struct {
	Bucket         *string `yaml:"bucket"`
	TemplatePath   *string `yaml:"template_path"`
	ExpectedRepo   *string `yaml:"expected_repo"`
	ExpectedBranch *string `yaml:"expected_branch"`
	StoreURL       *string `yaml:"store_url"`
	PublicURL      *string `yaml:"public_url"`
}

// LoadConfig builds a Config from defaults, the optional YAML file at path
// and then the environment. BADGES_BUCKET must end up set.
func LoadConfig(path string) (Config, error) {
	raw := fileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	overlay := func(dst **string, env string) {
		if v, ok := os.LookupEnv(env); ok {
			*dst = &v
		}
	}
	overlay(&raw.Bucket, "BADGES_BUCKET")
	overlay(&raw.TemplatePath, "TEMPLATE_PATH")
	overlay(&raw.ExpectedRepo, "EXPECTED_REPO")
	overlay(&raw.ExpectedBranch, "EXPECTED_BRANCH")
	overlay(&raw.StoreURL, "BLOB_STORE_URL")
	overlay(&raw.PublicURL, "BADGES_PUBLIC_URL")

	cfg := Config{
		Bucket:         strings.TrimSpace(valueOr(raw.Bucket, "")),
		ExpectedRepo:   valueOr(raw.ExpectedRepo, defaultExpectedRepo),
		ExpectedBranch: valueOr(raw.ExpectedBranch, defaultExpectedBranch),
		StoreURL:       valueOr(raw.StoreURL, defaultStoreURL),
		PublicURL:      valueOr(raw.PublicURL, ""),
	}
	if cfg.Bucket == "" {
		return Config{}, errors.New("BADGES_BUCKET is required")
	}

	tmplPath := valueOr(raw.TemplatePath, "")
	if tmplPath == "" {
		tmplPath = DefaultTemplate
	}
	tmpl, err := ParseTemplate(tmplPath)
	if err != nil {
		return Config{}, err
	}
	cfg.Template = tmpl

	if cfg.PublicURL == "" {
		cfg.PublicURL = "https://storage.googleapis.com/" + cfg.Bucket
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	return cfg, nil
}

// Accepts reports whether the build passes the repository/branch filter.
func (c Config) Accepts(b Build) bool {
	if c.ExpectedRepo != "" && b.Repo != c.ExpectedRepo {
		return false
	}
	if c.ExpectedBranch != "" && b.Branch != c.ExpectedBranch {
		return false
	}
	return true
}

// BadgeURL is the public URL of the relocated badge for repo and branch.
func (c Config) BadgeURL(repo, branch string) string {
	return c.PublicURL + "/" + c.Template.Execute(repo, branch)
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
