package relocator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Build is a build completion resolved from an event payload.
type Build struct {
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Status string `json:"status"`
}

// buildMetadata is the shape published by the build service itself.
type buildMetadata struct {
	Source *struct {
		RepoSource *struct {
			RepoName   string `json:"repoName"`
			BranchName string `json:"branchName"`
		} `json:"repoSource"`
	} `json:"source"`
}

// substitutionsShape is the flat shape used by repository triggers.
type substitutionsShape struct {
	Substitutions *struct {
		RepoName   string `json:"REPO_NAME"`
		BranchName string `json:"BRANCH_NAME"`
	} `json:"substitutions"`
}

type statusField struct {
	Status string `json:"status"`
}

// envelope covers both the background event ({"data": ...}) and the push
// subscription body ({"message": {"data": ...}}).
type envelope struct {
	Data    *string `json:"data"`
	Message *struct {
		Data *string `json:"data"`
	} `json:"message"`
}

var errNoData = errors.New("event has no data field")

// validStatus keeps the status usable as a single object key segment.
var validStatus = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseEnvelope returns the decoded payload carried by an event record.
func ParseEnvelope(raw []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	data := env.Data
	if data == nil && env.Message != nil {
		data = env.Message.Data
	}
	if data == nil {
		return nil, errNoData
	}
	return base64.StdEncoding.DecodeString(*data)
}

// ParseBuild resolves repository, branch and status from a decoded payload.
// The build metadata shape is preferred over the substitutions shape. The
// second result is false when the payload should be ignored.
func ParseBuild(payload []byte) (Build, bool) {
	var status statusField
	if err := json.Unmarshal(payload, &status); err != nil || !validStatus.MatchString(status.Status) {
		return Build{}, false
	}

	if repo, branch, ok := fromMetadata(payload); ok {
		return Build{Repo: NormalizeRepo(repo), Branch: branch, Status: status.Status}, true
	}
	if repo, branch, ok := fromSubstitutions(payload); ok {
		return Build{Repo: repo, Branch: branch, Status: status.Status}, true
	}
	return Build{}, false
}

func fromMetadata(payload []byte) (string, string, bool) {
	var m buildMetadata
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", "", false
	}
	if m.Source == nil || m.Source.RepoSource == nil {
		return "", "", false
	}
	rs := m.Source.RepoSource
	if rs.RepoName == "" || rs.BranchName == "" {
		return "", "", false
	}
	return rs.RepoName, rs.BranchName, true
}

func fromSubstitutions(payload []byte) (string, string, bool) {
	var s substitutionsShape
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", "", false
	}
	if s.Substitutions == nil || s.Substitutions.RepoName == "" || s.Substitutions.BranchName == "" {
		return "", "", false
	}
	return s.Substitutions.RepoName, s.Substitutions.BranchName, true
}

// NormalizeRepo strips the github_<owner>_ prefix that mirrored
// repositories carry. Other names are returned unchanged.
func NormalizeRepo(name string) string {
	rest, ok := strings.CutPrefix(name, "github_")
	if !ok {
		return name
	}
	_, repo, ok := strings.Cut(rest, "_")
	if !ok || repo == "" {
		return name
	}
	return repo
}
