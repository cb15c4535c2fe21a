// Package service orchestrates a recommendation run: fetch the feed,
// validate it, and drive the filter pipeline in its required order.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/events"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/trace"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/tracing"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/validation"
)

// Request describes one recommendation run.
type Request struct {
	// CheckinDate is the guest's checkin date string (the year, month
	// and day values joined with '-').
	CheckinDate string
	// Categories are the desired category names.
	Categories []string
	// ExtensionDays is the number of stay-extension days past checkin.
	ExtensionDays int
}

// Option configures a Service.
type Option func(*Service)

// WithEvents attaches an event manager.
func WithEvents(m *events.Manager) Option {
	return func(s *Service) { s.events = m }
}

// WithRecorder attaches a stage trace recorder. May be given multiple times.
func WithRecorder(rec trace.Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, rec) }
}

// Service provides the recommendation business logic.
type Service struct {
	client    *client.OffersClient
	events    *events.Manager
	recorders []trace.Recorder
}

// NewService creates a new service instance.
func NewService(c *client.OffersClient, opts ...Option) *Service {
	s := &Service{client: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend runs the full fetch-and-filter flow and returns the final
// offer set. The stage order is fixed: category, date, merchant, closest
// per category, top two.
func (s *Service) Recommend(ctx context.Context, req Request) (models.RecommendationsResponse, error) {
	if err := validation.ValidateCheckinDate(req.CheckinDate); err != nil {
		return models.RecommendationsResponse{}, err
	}

	runID := uuid.New().String()
	tracer := tracing.GetTracer()

	fetchCtx, span := tracer.StartSpan(ctx, "offers.fetch")
	offers, err := s.client.FetchOffers(fetchCtx)
	span.End()
	if err != nil {
		return models.RecommendationsResponse{}, err
	}

	if err := validation.ValidateOffers(offers); err != nil {
		return models.RecommendationsResponse{}, err
	}

	if s.events != nil {
		s.events.PublishOffersFetched(ctx, runID, s.client.URL(), len(offers))
	}

	opts := make([]pipeline.Option, 0, len(s.recorders)+1)
	for _, rec := range s.recorders {
		opts = append(opts, pipeline.WithObserver(trace.Observer(rec, runID)))
	}
	if s.events != nil {
		opts = append(opts, pipeline.WithObserver(func(stage pipeline.Stage, snapshot []models.Offer) {
			s.events.PublishStageCompleted(ctx, runID, stage, len(snapshot))
		}))
	}

	p, err := pipeline.New(offers, req.CheckinDate, opts...)
	if err != nil {
		return models.RecommendationsResponse{}, err
	}

	stages := []struct {
		stage pipeline.Stage
		run   func() error
	}{
		{pipeline.StageCategoryFilter, func() error { return p.CategoryFilter(req.Categories) }},
		{pipeline.StageDateFilter, func() error { return p.DateFilter(req.ExtensionDays) }},
		{pipeline.StageMerchantFilter, p.MerchantFilter},
		{pipeline.StageClosestPerCategoryFilter, p.ClosestMerchantPerCategoryFilter},
		{pipeline.StageTopTwoFilter, p.TopTwoOffersFilter},
	}

	for _, st := range stages {
		_, stageSpan := tracer.StartSpan(ctx, "pipeline."+string(st.stage))
		err := st.run()
		if err == nil {
			stageSpan.SetAttributes(attribute.Int("pipeline.offer_count", len(p.Offers())))
		}
		stageSpan.End()
		if err != nil {
			return models.RecommendationsResponse{}, fmt.Errorf("stage %s: %w", st.stage, err)
		}
	}

	result := models.RecommendationsResponse{
		RunID:  runID,
		Offers: p.Offers(),
	}

	if s.events != nil {
		s.events.PublishRecommendationsComputed(ctx, runID, req.CheckinDate, result.Offers)
	}
	return result, nil
}
