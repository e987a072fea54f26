// Package engine is the pure computation core behind the segmentation
// dashboard: RFM metric extraction, lifecycle classification, segment-tree
// aggregation, coverage-matrix building, campaign-impact tracking, and
// segment-similarity detection. Every function is a deterministic
// transformation of its inputs; the only mutable structure is the
// append-only CampaignLog.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed input records: negative amounts,
	// timestamps after the evaluation time, unknown channels.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig marks a rule set or tree definition that cannot classify
	// every customer. Raised at build time, never at query time.
	ErrConfig = errors.New("invalid configuration")

	// ErrDuplicateCampaign marks a re-ingested campaign id whose content
	// differs from the recorded one.
	ErrDuplicateCampaign = errors.New("duplicate campaign")
)

// InvalidInputError carries the offending record so the caller can surface it
type InvalidInputError struct {
	RecordID string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.RecordID, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ConfigError names the rule or tree definition that failed validation
type ConfigError struct {
	Subject string // Rule name, leaf id, or customer id
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Subject, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// DuplicateCampaignError reports a conflicting re-ingestion. A retry with
// identical content is not an error; only a content mismatch is.
type DuplicateCampaignError struct {
	CampaignID string
}

func (e *DuplicateCampaignError) Error() string {
	return fmt.Sprintf("duplicate campaign: %s already recorded with different content", e.CampaignID)
}

func (e *DuplicateCampaignError) Unwrap() error { return ErrDuplicateCampaign }
