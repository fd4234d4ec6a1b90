package ml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/nlp"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict/emotions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"emotions":[{"type":"FOMO","confidence":0.87},{"type":"GREED","confidence":0.41}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2, time.Second, zerolog.Nop())
	preds, err := c.Predict(context.Background(), "mua gấp kẻo lỡ")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions, want 2", len(preds))
	}
	if preds[0].Type != nlp.EmotionFOMO || preds[0].Confidence != 0.87 {
		t.Errorf("unexpected first prediction %+v", preds[0])
	}
}

func TestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score":-0.62,"label":"negative"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2, time.Second, zerolog.Nop())
	score, label, err := c.Score(context.Background(), "panic sell", "en")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != -0.62 || label != nlp.SentimentNegative {
		t.Errorf("got %.2f/%s, want -0.62/negative", score, label)
	}
}

func TestScoreRejectsUnknownLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score":0.1,"label":"meh"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2, time.Second, zerolog.Nop())
	if _, _, err := c.Score(context.Background(), "ok", "en"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestPredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2, time.Second, zerolog.Nop())
	if _, err := c.Predict(context.Background(), "text"); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestInFlightLimit(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		w.Write([]byte(`{"emotions":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2, time.Second, zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Predict(context.Background(), "text")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("in-flight peak = %d, want <= 2", peak)
	}
}
