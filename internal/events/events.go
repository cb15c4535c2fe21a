package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
)

// EventType represents the type of event.
type EventType string

const (
	// EventOffersFetched is emitted after the feed has been fetched and validated.
	EventOffersFetched EventType = "offers.fetched"
	// EventStageCompleted is emitted after every pipeline stage.
	EventStageCompleted EventType = "stage.completed"
	// EventRecommendationsComputed is emitted when a run produces its final set.
	EventRecommendationsComputed EventType = "recommendations.computed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// OffersFetchedData contains data for feed fetch events.
type OffersFetchedData struct {
	RunID string
	URL   string
	Count int
}

// StageCompletedData contains data for pipeline stage events.
type StageCompletedData struct {
	RunID      string
	Stage      pipeline.Stage
	OfferCount int
}

// RecommendationsComputedData contains data for completed-run events.
type RecommendationsComputedData struct {
	RunID      string
	Checkin    string
	Offers     []models.Offer
	ComputedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so a slow subscriber cannot stall a recommendation run.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				log.Printf("Error handling event %s: %v", eventType, err)
			}
		}(handler)
	}
}

// PublishOffersFetched publishes a feed fetch event.
func (m *Manager) PublishOffersFetched(ctx context.Context, runID, url string, count int) {
	m.Publish(ctx, EventOffersFetched, OffersFetchedData{
		RunID: runID,
		URL:   url,
		Count: count,
	})
}

// PublishStageCompleted publishes a pipeline stage event.
func (m *Manager) PublishStageCompleted(ctx context.Context, runID string, stage pipeline.Stage, offerCount int) {
	m.Publish(ctx, EventStageCompleted, StageCompletedData{
		RunID:      runID,
		Stage:      stage,
		OfferCount: offerCount,
	})
}

// PublishRecommendationsComputed publishes a completed-run event.
func (m *Manager) PublishRecommendationsComputed(ctx context.Context, runID, checkin string, offers []models.Offer) {
	m.Publish(ctx, EventRecommendationsComputed, RecommendationsComputedData{
		RunID:      runID,
		Checkin:    checkin,
		Offers:     offers,
		ComputedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
