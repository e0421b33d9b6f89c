package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHealthEndpointReportsProbes verifies the JSON snapshot carries the
// live probe readings.
func TestHealthEndpointReportsProbes(t *testing.T) {
	s := NewServer(0, Probes{
		ChannelRunning: func() bool { return true },
		QuotaUsed:      func() int { return 42 },
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "ok" || !st.ChannelRunning || st.QuotaUsed != 42 {
		t.Errorf("snapshot = %+v", st)
	}
}

// TestRootIsPlainLiveness verifies the root path answers 200 and unknown
// paths answer 404.
func TestRootIsPlainLiveness(t *testing.T) {
	s := NewServer(0, Probes{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("root status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}
