package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		APIURL:            srv.URL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
		CacheSize:         16,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestLookupSuccess(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"success","country":"Germany","countryCode":"DE","regionName":"Hesse","city":"Frankfurt","lat":50.11,"lon":8.68,"isp":"Example ISP","org":"Example Org"}`)
	}))

	loc, err := client.Lookup(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loc.Country != "Germany" || loc.CountryCode != "DE" {
		t.Errorf("country = %q/%q, want Germany/DE", loc.Country, loc.CountryCode)
	}
	if loc.City != "Frankfurt" {
		t.Errorf("city = %q, want Frankfurt", loc.City)
	}
	if loc.Latitude != 50.11 || loc.Longitude != 8.68 {
		t.Errorf("coordinates = %v/%v, want 50.11/8.68", loc.Latitude, loc.Longitude)
	}
}

func TestLookupNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"fail","message":"reserved range"}`)
	}))

	_, err := client.Lookup(context.Background(), "203.0.113.5")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupPrivateAddressSkipsRequest(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	for _, addr := range []string{"10.0.0.1", "172.16.4.2", "192.168.1.100", "127.0.0.1", "169.254.0.9"} {
		_, err := client.Lookup(context.Background(), addr)
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("Lookup(%q) err = %v, want ErrPrivateAddress", addr, err)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server received %d requests for private addresses, want 0", n)
	}
}

func TestLookupCachesResults(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"status":"success","country":"France","countryCode":"FR"}`)
	}))

	for i := 0; i < 3; i++ {
		if _, err := client.Lookup(context.Background(), "198.51.100.7"); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server received %d requests, want 1 (cached)", n)
	}
}

func TestEnrichSkipsFailures(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/203.0.113.5" {
			fmt.Fprintf(w, `{"status":"success","country":"Brazil","countryCode":"BR"}`)
			return
		}
		fmt.Fprintf(w, `{"status":"fail","message":"invalid query"}`)
	}))

	got := client.Enrich(context.Background(), []string{"203.0.113.5", "198.51.100.7", "10.0.0.1"})
	if len(got) != 1 {
		t.Fatalf("Enrich returned %d locations, want 1", len(got))
	}
	if got["203.0.113.5"].CountryCode != "BR" {
		t.Errorf("country code = %q, want BR", got["203.0.113.5"].CountryCode)
	}
}

func TestIsPrivateIPv4(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"10.0.0.1", true},
		{"172.15.0.1", false},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"192.169.0.1", false},
		{"127.0.0.1", true},
		{"169.254.10.10", true},
		{"8.8.8.8", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := IsPrivateIPv4(tt.address); got != tt.want {
			t.Errorf("IsPrivateIPv4(%q) = %v, want %v", tt.address, got, tt.want)
		}
	}
}
