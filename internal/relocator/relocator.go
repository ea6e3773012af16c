package relocator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnitVectorY-Labs/buildbadges/internal/blobstore"
	"github.com/UnitVectorY-Labs/buildbadges/internal/metrics"
)

// Skip reasons reported in Result.Reason.
const (
	ReasonUnparsable = "unparsable"
	ReasonFiltered   = "filtered"
)

// Result describes what one invocation did.
type Result struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Build   Build  `json:"build"`
	Bucket  string `json:"bucket,omitempty"`
	Source  string `json:"source,omitempty"`
	Dest    string `json:"dest,omitempty"`
}

// Relocator copies status badges inside a blob store. It holds no state
// between calls.
type Relocator struct {
	cfg     Config
	store   blobstore.Store
	metrics metrics.Metrics
	log     *slog.Logger
}

func New(cfg Config, store blobstore.Store, m metrics.Metrics, log *slog.Logger) *Relocator {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Relocator{cfg: cfg, store: store, metrics: m, log: log}
}

// SourceKey is the key of the pre-rendered badge for status.
func SourceKey(status string) string {
	return "badges/" + strings.ToLower(status) + ".svg"
}

// HandleEnvelope decodes an event record and handles its payload. An
// undecodable record is ignored.
func (r *Relocator) HandleEnvelope(ctx context.Context, raw []byte) (Result, error) {
	payload, err := ParseEnvelope(raw)
	if err != nil {
		r.log.Debug("ignoring undecodable event", "error", err)
		r.metrics.IncEvents(ReasonUnparsable)
		return Result{Skipped: true, Reason: ReasonUnparsable}, nil
	}
	return r.Handle(ctx, payload)
}

// Handle processes a decoded build payload. Parse failures and filtered
// builds return a skipped Result and no error. Store failures are returned.
func (r *Relocator) Handle(ctx context.Context, payload []byte) (Result, error) {
	build, ok := ParseBuild(payload)
	if !ok {
		r.log.Debug("ignoring event without repository, branch or status")
		r.metrics.IncEvents(ReasonUnparsable)
		return Result{Skipped: true, Reason: ReasonUnparsable}, nil
	}
	if !r.cfg.Accepts(build) {
		r.log.Debug("ignoring build", "repo", build.Repo, "branch", build.Branch)
		r.metrics.IncEvents(ReasonFiltered)
		return Result{Skipped: true, Reason: ReasonFiltered, Build: build}, nil
	}

	res := Result{
		Build:  build,
		Bucket: r.cfg.Bucket,
		Source: SourceKey(build.Status),
		Dest:   r.cfg.Template.Execute(build.Repo, build.Branch),
	}
	if err := r.copy(ctx, res.Source, res.Dest); err != nil {
		r.metrics.IncEvents("error")
		return res, err
	}

	r.metrics.IncEvents("copied")
	r.metrics.IncCopies(strings.ToLower(build.Status))
	r.log.Info("badge copied",
		"repo", build.Repo,
		"branch", build.Branch,
		"status", build.Status,
		"bucket", res.Bucket,
		"dest", res.Dest)
	return res, nil
}

func (r *Relocator) copy(ctx context.Context, src, dst string) error {
	bucket, err := r.store.Bucket(ctx, r.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("badge bucket: %w", err)
	}
	if _, err := bucket.Stat(ctx, src); err != nil {
		return fmt.Errorf("source badge: %w", err)
	}
	if err := bucket.Copy(ctx, src, dst); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}
