// Package processor holds the record processors of the dailysync example.
package processor

import (
	"context"
	"fmt"
	"strings"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	batchprocessor "github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// NormalizeEmailConfig is the typed configuration of NormalizeEmailProcessor,
// bound from the job definition's config blob.
type NormalizeEmailConfig struct {
	// DefaultDomain is appended to bare local parts (e.g. "jdoe" ->
	// "jdoe@example.com").
	DefaultDomain string `mapstructure:"default_domain"`
	// SkipMissing skips records without an email field instead of erroring.
	SkipMissing bool `mapstructure:"skip_missing"`
}

// NormalizeEmailProcessor lowercases and completes the "email" field of each
// record.
type NormalizeEmailProcessor struct {
	cfg NormalizeEmailConfig
}

// NewNormalizeEmailProcessor creates a new NormalizeEmailProcessor.
func NewNormalizeEmailProcessor() *NormalizeEmailProcessor {
	return &NormalizeEmailProcessor{}
}

func (p *NormalizeEmailProcessor) Name() string { return "normalizeEmail" }

// Configure binds the job definition's config blob.
func (p *NormalizeEmailProcessor) Configure(cfg model.Payload) error {
	return batchprocessor.BindConfig(cfg, &p.cfg)
}

// Process normalizes the record's email address.
func (p *NormalizeEmailProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	email, ok := input.GetString("email")
	if !ok || email == "" {
		if p.cfg.SkipMissing {
			return nil, batchprocessor.ErrSkipRecord
		}
		return nil, exception.NewBatchError("normalize_email", "record has no email field", nil, true, false)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		if p.cfg.DefaultDomain == "" {
			return nil, exception.NewBatchError("normalize_email", fmt.Sprintf("malformed email '%s'", email), nil, true, false)
		}
		email = email + "@" + p.cfg.DefaultDomain
	}

	out := input.Copy()
	out.Put("email", email)
	return out, nil
}

var _ batchprocessor.RecordProcessor = (*NormalizeEmailProcessor)(nil)
var _ batchprocessor.ConfigurableRecordProcessor = (*NormalizeEmailProcessor)(nil)
