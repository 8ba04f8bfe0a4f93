package stats

import (
	"sync"
	"testing"
	"time"
)

func TestRecordRequest(t *testing.T) {
	s := New()

	for _, endpoint := range []string{"/api/get", "/get", "/api/search", "/health", "/"} {
		s.RecordRequest(endpoint)
	}

	if got := s.TotalRequests.Load(); got != 5 {
		t.Errorf("Expected 5 total requests, got %d", got)
	}
	if got := s.LyricsRequests.Load(); got != 2 {
		t.Errorf("Expected 2 lyrics requests, got %d", got)
	}
	if got := s.SearchRequests.Load(); got != 1 {
		t.Errorf("Expected 1 search request, got %d", got)
	}
	if got := s.OtherRequests.Load(); got != 1 {
		t.Errorf("Expected 1 other request, got %d", got)
	}
}

func TestRecordLookup(t *testing.T) {
	s := New()

	s.RecordLookup("title+artist", "line", true, false)
	s.RecordLookup("title+artist", "word", false, false)
	s.RecordLookup("artist", "none", false, true)
	s.LookupsNotFound.Add(1)

	snap := s.Snapshot()["lookups"].(map[string]interface{})

	byStrategy := snap["by_strategy"].(map[string]int64)
	if byStrategy["title+artist"] != 2 || byStrategy["artist"] != 1 {
		t.Errorf("Unexpected strategy counts: %v", byStrategy)
	}
	byVariant := snap["by_variant"].(map[string]int64)
	if byVariant["line"] != 1 || byVariant["word"] != 1 || byVariant["none"] != 1 {
		t.Errorf("Unexpected variant counts: %v", byVariant)
	}
	if snap["exact_matches"].(int64) != 1 || snap["fallbacks"].(int64) != 1 {
		t.Errorf("Unexpected exact/fallback counts: %v", snap)
	}
	if rate := s.MatchRate(); rate != 75 {
		t.Errorf("Expected match rate 75, got %v", rate)
	}
}

func TestRecordResponseTime(t *testing.T) {
	s := New()

	if s.MinResponseTime() != 0 {
		t.Errorf("Expected zero minimum before any response, got %v", s.MinResponseTime())
	}

	s.RecordResponseTime(10*time.Millisecond, "/api/get")
	s.RecordResponseTime(30*time.Millisecond, "/health")

	if s.MinResponseTime() != 10*time.Millisecond {
		t.Errorf("Expected min 10ms, got %v", s.MinResponseTime())
	}

	times := s.Snapshot()["response_times"].(map[string]interface{})
	if times["avg"] != (20 * time.Millisecond).String() {
		t.Errorf("Expected avg 20ms, got %v", times["avg"])
	}
	if times["max"] != (30 * time.Millisecond).String() {
		t.Errorf("Expected max 30ms, got %v", times["max"])
	}
	if times["avg_lyrics"] != (10 * time.Millisecond).String() {
		t.Errorf("Expected lyrics avg 10ms, got %v", times["avg_lyrics"])
	}
}

func TestRecordStatusCode(t *testing.T) {
	s := New()
	for _, code := range []int{200, 204, 400, 404, 429, 500, 302} {
		s.RecordStatusCode(code)
	}

	if s.Status2xx.Load() != 2 || s.Status4xx.Load() != 3 || s.Status5xx.Load() != 1 {
		t.Errorf("Unexpected status counts: 2xx=%d 4xx=%d 5xx=%d",
			s.Status2xx.Load(), s.Status4xx.Load(), s.Status5xx.Load())
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordLookup("title", "line", false, false)
			s.RecordSearchCall(false)
			s.RecordResponseTime(time.Millisecond, "/api/get")
		}()
	}
	wg.Wait()

	if s.LookupsFound.Load() != 100 || s.SearchCalls.Load() != 100 {
		t.Errorf("Lost updates: found=%d searches=%d", s.LookupsFound.Load(), s.SearchCalls.Load())
	}
}
