package datapush

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPush(t *testing.T) {
	var got Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPusher(srv.URL)
	err := p.Push(&Summary{
		Source:         "jgbcm_all.csv",
		RunAt:          time.Now(),
		RetainedDates:  120,
		FactorNames:    []string{"Level", "Slope", "Curvature"},
		VarianceRatios: []float64{0.92, 0.06, 0.01},
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got.RetainedDates != 120 || len(got.VarianceRatios) != 3 {
		t.Errorf("server received %+v", got)
	}
}

func TestPushEmptyURLIsNoop(t *testing.T) {
	p := NewPusher("")
	if err := p.Push(&Summary{}); err != nil {
		t.Errorf("Push with empty URL: %v", err)
	}
}

func TestPushServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPusher(srv.URL)
	if err := p.Push(&Summary{}); err == nil {
		t.Errorf("expected error for 500 response")
	}
}
