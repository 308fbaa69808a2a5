package query

import "errors"

var (
	// ErrEmptyQuestion is a validation failure; callers map it to a 4xx.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrDataUnavailable wraps a failed mandatory read for a narrow intent.
	// There is no deterministic answer without that data.
	ErrDataUnavailable = errors.New("season data unavailable")

	// ErrEnrichmentUnavailable is returned by enrichers that lack the
	// configuration to run. It is absorbed by the orchestrator.
	ErrEnrichmentUnavailable = errors.New("enrichment not configured")
)
