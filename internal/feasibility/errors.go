package feasibility

import (
	"errors"

	"github.com/ignite/audience-feasibility/internal/search"
)

var (
	ErrInvalidRange         = errors.New("invalid order of dates: startDate must be before endDate")
	ErrNoIncludedUniverse   = errors.New("no universes found in segment")
	ErrEmptySegmentSet      = errors.New("segments array must contain items")
	ErrInvalidCounts        = errors.New("segment volume cannot be larger than population")
	ErrInvalidDiscriminance = errors.New("bad discriminance")
	ErrInvalidNorm          = errors.New("volume norm must be positive")
	ErrBadIO                = errors.New("bad IO: no countries found")
	ErrUnknownReportType    = errors.New("bad implementation: unknown reportTypeName")
	ErrInvalidRequest       = errors.New("invalid feasibility request")
)

// IsClientError reports whether err was caused by the request itself rather
// than by the data source or an internal inconsistency.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrNoIncludedUniverse),
		errors.Is(err, ErrEmptySegmentSet),
		errors.Is(err, ErrUnknownReportType),
		errors.Is(err, ErrBadIO):
		return true
	}
	return false
}

// IsDataSourceError reports whether err came back from the search cluster.
func IsDataSourceError(err error) bool {
	return errors.Is(err, search.ErrMalformedResponse) || errors.As(err, new(*SearchError))
}

// SearchError wraps a failed round trip with the operation that issued it.
type SearchError struct {
	Op  string
	Err error
}

func (e *SearchError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *SearchError) Unwrap() error {
	return e.Err
}
