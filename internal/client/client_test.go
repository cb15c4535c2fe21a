package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/cache"
)

const feedBody = `{"offers":[
	{"id":1,"title":"Offer 1","description":"d","category":1,
	 "merchants":[{"id":10,"name":"m1","distance":0.5}],"valid_to":"2023-12-01"},
	{"id":2,"title":"Offer 2","description":"d","category":3,
	 "merchants":[{"id":20,"name":"m2","distance":2.0}],"valid_to":"2023-11-01"}
]}`

func TestFetchOffers_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	offers, err := New(srv.URL).FetchOffers(context.Background())
	if err != nil {
		t.Fatalf("FetchOffers returned error: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("len(offers) = %d, want 2", len(offers))
	}
	if offers[0].ID != 1 || offers[1].ID != 2 {
		t.Errorf("offer ids = %d, %d, want 1, 2", offers[0].ID, offers[1].ID)
	}
}

func TestFetchOffers_MissingOffersKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"deals":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchOffers(context.Background())
	if !errors.Is(err, ErrMissingOffersKey) {
		t.Errorf("error = %v, want ErrMissingOffersKey", err)
	}
}

func TestFetchOffers_EmptyOffersArrayIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"offers":[]}`))
	}))
	defer srv.Close()

	offers, err := New(srv.URL).FetchOffers(context.Background())
	if err != nil {
		t.Fatalf("FetchOffers returned error: %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("len(offers) = %d, want 0", len(offers))
	}
}

func TestFetchOffers_Non200IsFatalByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchOffers(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", statusErr.StatusCode)
	}
}

func TestFetchOffers_LenientStatusDecodesAnyway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	offers, err := New(srv.URL, WithLenientStatus()).FetchOffers(context.Background())
	if err != nil {
		t.Fatalf("FetchOffers returned error: %v", err)
	}
	if len(offers) != 2 {
		t.Errorf("len(offers) = %d, want 2", len(offers))
	}
}

func TestFetchOffers_ServesFromCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := New(srv.URL, WithCache(cache.NewMemoryCache(), time.Minute))

	for i := 0; i < 3; i++ {
		offers, err := c.FetchOffers(context.Background())
		if err != nil {
			t.Fatalf("FetchOffers #%d returned error: %v", i, err)
		}
		if len(offers) != 2 {
			t.Fatalf("FetchOffers #%d len = %d, want 2", i, len(offers))
		}
	}

	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1", hits)
	}
}
