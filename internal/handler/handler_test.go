package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/service"
)

const testFeed = `{"offers":[
	{"id":1,"title":"Steakhouse deal","description":"d","category":1,
	 "merchants":[{"id":10,"name":"steakhouse","distance":2.0},{"id":11,"name":"annex","distance":0.8}],
	 "valid_to":"2023-12-01"},
	{"id":2,"title":"Mall voucher","description":"d","category":2,
	 "merchants":[{"id":20,"name":"mall","distance":1.5}],"valid_to":"2023-12-01"},
	{"id":3,"title":"Spa pass","description":"d","category":4,
	 "merchants":[{"id":30,"name":"spa","distance":0.3}],"valid_to":"2023-12-01"}
]}`

func newTestRouter(t *testing.T, feedBody string, feedStatus int) *chi.Mux {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(feedStatus)
		w.Write([]byte(feedBody))
	}))
	t.Cleanup(feed.Close)

	svc := service.NewService(client.New(feed.URL))
	h := NewHandler(svc, Defaults{
		Categories:    []string{"Restaurant", "Retail", "Activity"},
		ExtensionDays: 5,
	})

	r := chi.NewRouter()
	r.Get("/recommendations", h.GetRecommendations)
	r.Get("/health", h.Health)
	return r
}

func doRequest(t *testing.T, router *chi.Mux, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetRecommendations_OK(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Run-ID") == "" {
		t.Error("X-Run-ID header is missing")
	}

	var resp models.RecommendationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Offers) != 2 {
		t.Fatalf("len(Offers) = %d, want 2", len(resp.Offers))
	}
	if resp.Offers[0].ID != 3 || resp.Offers[1].ID != 1 {
		t.Errorf("offer ids = %d, %d, want 3, 1", resp.Offers[0].ID, resp.Offers[1].ID)
	}
}

func TestGetRecommendations_SeparateDateParts(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?year=2023&month=01&day=01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestGetRecommendations_MissingCheckin(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRecommendations_InvalidCheckin(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	for _, target := range []string{
		"/recommendations?checkin=02-29-2023",
		"/recommendations?checkin=abc-12-2023",
		"/recommendations?checkin=13-01-2023",
	} {
		rec := doRequest(t, router, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestGetRecommendations_BadDays(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023&days=nope")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRecommendations_ExtensionTooLong(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023&days=45")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRecommendations_MissingCategoryIs422(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023&categories=Hotel")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422; body: %s", rec.Code, rec.Body.String())
	}
}

func TestGetRecommendations_UpstreamFailureIs502(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusInternalServerError)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGetRecommendations_MissingOffersKeyIs502(t *testing.T) {
	router := newTestRouter(t, `{"deals":[]}`, http.StatusOK)

	rec := doRequest(t, router, "/recommendations?checkin=01-01-2023")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, testFeed, http.StatusOK)

	rec := doRequest(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
