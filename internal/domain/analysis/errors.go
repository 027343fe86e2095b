package analysis

import "errors"

var (
	// ErrInvalidInput signals a request parameter the caller must fix
	// (non-positive principal, unknown spread or base rate).
	ErrInvalidInput = errors.New("invalid analysis input")
	// ErrConfiguration signals a service-side configuration problem.
	ErrConfiguration = errors.New("analysis service misconfigured")
	// ErrExtraction signals that a document could not yield the figures the
	// analysis needs. Distinct from income.RejectedError, which names an
	// outdated document rather than an unusable one.
	ErrExtraction = errors.New("document extraction failed")
)
