package feasibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ignite/audience-feasibility/internal/pkg/logger"
	"github.com/ignite/audience-feasibility/internal/search"
)

const (
	// DefaultOutlierShare is the share of IO users a country must strictly
	// exceed to be kept.
	DefaultOutlierShare = 0.01

	CreativeChoiceIndex     = "ccr_feasibility"
	FieldCampaignAdChooser  = "campaign_ad_chooser_id"
	creativeChoiceFlagValue = "TRUE"

	perCountryAggregation = "per_country"
	perIndexAggregation   = "per_index"

	tracerName = "github.com/ignite/audience-feasibility/internal/feasibility"
)

// Service runs feasibility checks against a search cluster. It keeps no
// state between calls and is safe for concurrent use.
type Service struct {
	searcher     search.Searcher
	evaluator    *Evaluator
	outlierShare float64
	tracer       trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithOutlierShare overrides the country share threshold of IO resolution.
func WithOutlierShare(share float64) Option {
	return func(s *Service) { s.outlierShare = share }
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// NewService creates a Service over searcher scoring with evaluator.
func NewService(searcher search.Searcher, evaluator *Evaluator, opts ...Option) *Service {
	s := &Service{
		searcher:     searcher,
		evaluator:    evaluator,
		outlierShare: DefaultOutlierShare,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==========================================
// INDEX RESOLUTION
// ==========================================

// ResolveByIO finds the countries and monthly indices an insertion order
// delivered on. Countries at or below the outlier share are dropped. An
// unknown io yields an empty country list, not an error.
func (s *Service) ResolveByIO(ctx context.Context, io string) (IOResolution, error) {
	req := search.Request{
		Indices: []string{AllMonthlyIndices},
		Size:    0,
		Query:   search.ConstantScore{Filter: search.NewBoolQuery().AddFilter(search.NewTerms(FieldIOList, io))},
		Aggregations: map[string]search.Aggregation{
			perCountryAggregation: search.TermsAggregation{Field: FieldCountry},
			perIndexAggregation:   search.TermsAggregation{Field: FieldIndex},
		},
	}

	resp, err := s.search(ctx, "resolve_io", req)
	if err != nil {
		return IOResolution{}, err
	}

	countries, err := resp.Buckets(perCountryAggregation)
	if err != nil {
		return IOResolution{}, err
	}
	indices, err := resp.Buckets(perIndexAggregation)
	if err != nil {
		return IOResolution{}, err
	}

	return IOResolution{
		CountryList: keepSignificantCountries(countries, s.outlierShare),
		Indices:     bucketKeys(indices),
	}, nil
}

func keepSignificantCountries(buckets []search.Bucket, share float64) []string {
	var total int64
	for _, b := range buckets {
		total += b.DocCount
	}

	threshold := share * float64(total)
	kept := []string{}
	for _, b := range buckets {
		if float64(b.DocCount) > threshold {
			kept = append(kept, b.Key)
		}
	}
	return kept
}

func bucketKeys(buckets []search.Bucket) []string {
	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.Key)
	}
	return keys
}

// ==========================================
// COUNTING
// ==========================================

// QueryPopulationAndSegments counts the consented population and every
// segment in a single search.
func (s *Service) QueryPopulationAndSegments(ctx context.Context, indices, countries []string, segments []Segment, io string) ([]RawCounts, error) {
	req, err := PlanBatch(indices, countries, segments, io)
	if err != nil {
		return nil, err
	}

	resp, err := s.search(ctx, "count_segments", req)
	if err != nil {
		return nil, err
	}
	return readCounts(resp, len(segments))
}

// CreativeChoiceFeasible reads the precomputed flag of a campaign ad chooser.
// A missing document is not feasible.
func (s *Service) CreativeChoiceFeasible(ctx context.Context, campaignAdChooserID string) (bool, error) {
	req := search.Request{
		Indices: []string{CreativeChoiceIndex},
		Size:    1,
		Query:   search.ConstantScore{Filter: search.Term{Field: FieldCampaignAdChooser, Value: campaignAdChooserID}},
	}

	resp, err := s.search(ctx, "creative_choice", req)
	if err != nil {
		return false, err
	}

	hits := resp.Hits()
	if len(hits) == 0 {
		return false, nil
	}

	var doc struct {
		Feasibility string `json:"feasibility"`
	}
	if err := json.Unmarshal(hits[0].Source, &doc); err != nil {
		return false, fmt.Errorf("%w: creative choice document: %v", search.ErrMalformedResponse, err)
	}
	return doc.Feasibility == creativeChoiceFlagValue, nil
}

// ==========================================
// ORCHESTRATION
// ==========================================

// Check runs the feasibility check the request's scope calls for.
func (s *Service) Check(ctx context.Context, req Request) (Result, error) {
	checkID := uuid.NewString()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "feasibility.Check", trace.WithAttributes(
		attribute.String("feasibility.report_type", string(req.ReportType)),
		attribute.String("feasibility.check_id", checkID),
	))
	defer span.End()

	result, err := s.check(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("feasibility check failed",
			"check_id", checkID,
			"report_type", req.ReportType,
			"error", err,
		)
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Bool("feasibility.feasible", result.Feasible),
		attribute.Int("feasibility.volume", result.Volume),
		attribute.Int("feasibility.discriminance", result.Discriminance),
	)
	logger.Info("feasibility checked",
		"check_id", checkID,
		"report_type", req.ReportType,
		"feasible", result.Feasible,
		"volume", result.Volume,
		"discriminance", result.Discriminance,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) check(ctx context.Context, req Request) (Result, error) {
	switch scope := req.Scope.(type) {
	case IOScope:
		return s.checkIO(ctx, scope)
	case DateRangeScope:
		return s.checkDateRange(ctx, scope)
	case CampaignScope:
		feasible, err := s.CreativeChoiceFeasible(ctx, scope.CampaignAdChooserID)
		if err != nil {
			return Result{}, err
		}
		if feasible {
			return Result{Feasible: true, Volume: 100, Discriminance: 100}, nil
		}
		return NeutralResult(), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownReportType, req.ReportType)
	}
}

func (s *Service) checkIO(ctx context.Context, scope IOScope) (Result, error) {
	resolution, err := s.ResolveByIO(ctx, scope.IO)
	if err != nil {
		return Result{}, err
	}
	if len(resolution.CountryList) == 0 {
		return Result{}, fmt.Errorf("%w: io %q", ErrBadIO, scope.IO)
	}

	counts, err := s.QueryPopulationAndSegments(ctx, resolution.Indices, resolution.CountryList, []Segment{scope.Segment}, scope.IO)
	if err != nil {
		return Result{}, err
	}
	return s.evaluator.Evaluate(counts[0].Population, counts[0].SegmentVolume, s.evaluator.PerformerNorm())
}

func (s *Service) checkDateRange(ctx context.Context, scope DateRangeScope) (Result, error) {
	start, err := ParseDate(scope.StartDate)
	if err != nil {
		return Result{}, err
	}
	end, err := ParseDate(scope.EndDate)
	if err != nil {
		return Result{}, err
	}
	indices, err := MonthlyIndices(start, end)
	if err != nil {
		return Result{}, err
	}

	counts, err := s.QueryPopulationAndSegments(ctx, indices, scope.CountryList, []Segment{scope.Segment}, "")
	if err != nil {
		return Result{}, err
	}
	return s.evaluator.Evaluate(counts[0].Population, counts[0].SegmentVolume, s.evaluator.PersonaNorm())
}

// CheckOrNeutral is Check for callers that answer users directly: an
// insertion order without countries yields the neutral result instead of an
// error. Every other failure is returned.
func (s *Service) CheckOrNeutral(ctx context.Context, req Request) (Result, error) {
	result, err := s.Check(ctx, req)
	if errors.Is(err, ErrBadIO) {
		return NeutralResult(), nil
	}
	return result, err
}

// search issues one round trip inside its own span. Failures are wrapped in
// a SearchError named after op.
func (s *Service) search(ctx context.Context, op string, req search.Request) (*search.Response, error) {
	ctx, span := s.tracer.Start(ctx, "search."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.StringSlice("search.indices", req.Indices)))
	defer span.End()

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &SearchError{Op: op, Err: err}
	}
	return resp, nil
}
