package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/events"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/trace"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/validation"
)

// Feed with one offer per category; checkin 01-01-2023 with a 5 day
// extension keeps everything except the expired restaurant offer 5.
const testFeed = `{"offers":[
	{"id":1,"title":"Steakhouse deal","description":"d","category":1,
	 "merchants":[{"id":10,"name":"steakhouse","distance":2.0},{"id":11,"name":"annex","distance":0.8}],
	 "valid_to":"2023-12-01"},
	{"id":2,"title":"Mall voucher","description":"d","category":2,
	 "merchants":[{"id":20,"name":"mall","distance":1.5}],"valid_to":"2023-12-01"},
	{"id":3,"title":"Spa pass","description":"d","category":4,
	 "merchants":[{"id":30,"name":"spa","distance":0.3}],"valid_to":"2023-12-01"},
	{"id":5,"title":"Expired brunch","description":"d","category":1,
	 "merchants":[{"id":50,"name":"cafe","distance":0.1}],"valid_to":"01-02-2023"}
]}`

func newFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecommend_FullPipeline(t *testing.T) {
	srv := newFeedServer(t, testFeed)
	svc := NewService(client.New(srv.URL))

	resp, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "01-01-2023",
		Categories:    []string{"Restaurant", "Retail", "Activity"},
		ExtensionDays: 5,
	})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if resp.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(resp.Offers) != 2 {
		t.Fatalf("len(Offers) = %d, want 2", len(resp.Offers))
	}

	// Offer 5 is expired, so the closest surviving merchants are the spa
	// (0.3) and the steakhouse annex (0.8).
	if resp.Offers[0].ID != 3 || resp.Offers[1].ID != 1 {
		t.Errorf("offer ids = %d, %d, want 3, 1", resp.Offers[0].ID, resp.Offers[1].ID)
	}
	for _, offer := range resp.Offers {
		if len(offer.Merchants.List) != 1 || !offer.Merchants.Single {
			t.Errorf("offer %d merchants not collapsed: %+v", offer.ID, offer.Merchants)
		}
	}
}

func TestRecommend_InvalidCheckinDateFailsBeforeFetch(t *testing.T) {
	fetched := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = true
	}))
	defer srv.Close()

	svc := NewService(client.New(srv.URL))
	_, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "02-29-2023",
		Categories:    []string{"Restaurant"},
		ExtensionDays: 5,
	})

	var ve *validation.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *validation.ValidationError", err)
	}
	if fetched {
		t.Error("feed was fetched despite invalid checkin date")
	}
}

func TestRecommend_MissingCategoryIsFatal(t *testing.T) {
	srv := newFeedServer(t, testFeed)
	svc := NewService(client.New(srv.URL))

	_, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "01-01-2023",
		Categories:    []string{"Hotel"},
		ExtensionDays: 5,
	})

	var notFound *pipeline.CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *CategoryNotFoundError", err)
	}
}

func TestRecommend_MalformedOfferIsFatal(t *testing.T) {
	srv := newFeedServer(t, `{"offers":[
		{"id":1,"title":"no merchants","description":"d","category":1,
		 "merchants":[],"valid_to":"2023-12-01"}
	]}`)
	svc := NewService(client.New(srv.URL))

	_, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "01-01-2023",
		Categories:    []string{"Restaurant"},
		ExtensionDays: 5,
	})

	var ve *validation.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *validation.ValidationError", err)
	}
}

func TestRecommend_RecordsStageTraces(t *testing.T) {
	srv := newFeedServer(t, testFeed)

	rec, err := trace.NewSQLiteRecorder(filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRecorder returned error: %v", err)
	}
	defer rec.Close()

	svc := NewService(client.New(srv.URL), WithRecorder(rec))
	resp, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "01-01-2023",
		Categories:    []string{"Restaurant", "Retail", "Activity"},
		ExtensionDays: 5,
	})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}

	records, err := rec.RunStages(resp.RunID)
	if err != nil {
		t.Fatalf("RunStages returned error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("len(records) = %d, want 5 (one per stage)", len(records))
	}
	if records[0].Stage != pipeline.StageCategoryFilter {
		t.Errorf("first stage = %s, want category_filter", records[0].Stage)
	}
	if records[4].Stage != pipeline.StageTopTwoFilter {
		t.Errorf("last stage = %s, want top_two_offers_filter", records[4].Stage)
	}
	if records[4].OfferCount != 2 {
		t.Errorf("final stage offer count = %d, want 2", records[4].OfferCount)
	}
}

func TestRecommend_PublishesEvents(t *testing.T) {
	srv := newFeedServer(t, testFeed)

	mgr := events.NewManager(true)
	defer mgr.Shutdown()

	var mu sync.Mutex
	got := make(map[events.EventType]int)
	done := make(chan struct{}, 16)
	handler := func(ctx context.Context, ev events.Event) error {
		mu.Lock()
		got[ev.Type]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	mgr.Subscribe(events.EventOffersFetched, handler)
	mgr.Subscribe(events.EventStageCompleted, handler)
	mgr.Subscribe(events.EventRecommendationsComputed, handler)

	svc := NewService(client.New(srv.URL), WithEvents(mgr))
	if _, err := svc.Recommend(context.Background(), Request{
		CheckinDate:   "01-01-2023",
		Categories:    []string{"Restaurant", "Retail", "Activity"},
		ExtensionDays: 5,
	}); err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}

	// One fetch event, five stage events, one completion event.
	for i := 0; i < 7; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of 7", i+1)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if got[events.EventOffersFetched] != 1 {
		t.Errorf("offers.fetched events = %d, want 1", got[events.EventOffersFetched])
	}
	if got[events.EventStageCompleted] != 5 {
		t.Errorf("stage.completed events = %d, want 5", got[events.EventStageCompleted])
	}
	if got[events.EventRecommendationsComputed] != 1 {
		t.Errorf("recommendations.computed events = %d, want 1", got[events.EventRecommendationsComputed])
	}
}
