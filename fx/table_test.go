package fx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestTable_Rate(t *testing.T) {
	tbl := NewTable()
	mon := date.MustParse("2025-03-03")
	fri := date.MustParse("2025-02-28")
	tbl.SetFloat("USD", "EUR", fri, 0.9)
	tbl.SetFloat("USD", "EUR", mon, 0.92)

	// Exact day.
	r, err := tbl.Rate("USD", "EUR", mon)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(0.92)) {
		t.Errorf("rate = %s, want 0.92", r)
	}

	// Weekend falls back to the latest earlier rate.
	r, err = tbl.Rate("USD", "EUR", date.MustParse("2025-03-02"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("sunday rate = %s, want friday's 0.9", r)
	}

	// Nothing known before the first rate.
	if _, err := tbl.Rate("USD", "EUR", date.MustParse("2025-01-01")); !errors.Is(err, ErrRateNotFound) {
		t.Errorf("early lookup = %v, want ErrRateNotFound", err)
	}
	if _, err := tbl.Rate("USD", "CHF", mon); !errors.Is(err, ErrRateNotFound) {
		t.Errorf("unknown pair = %v, want ErrRateNotFound", err)
	}
}

func TestTable_Inverse(t *testing.T) {
	tbl := NewTable()
	on := date.MustParse("2025-03-03")
	tbl.Set("USD", "EUR", on, decimal.NewFromFloat(0.8))

	r, err := tbl.Rate("EUR", "USD", on)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("inverse rate = %s, want 1.25", r)
	}
}

func TestTable_Identity(t *testing.T) {
	r, err := NewTable().Rate("EUR", "EUR", date.Today())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromInt(1)) {
		t.Errorf("identity rate = %s, want 1", r)
	}
}

func TestClient_Rate(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintf(w, `{"base":"USD","date":"%s","rates":{"EUR":0.91}}`, r.URL.Path[1:])
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	on := date.MustParse("2025-03-03")
	r, err := c.Rate("USD", "EUR", on)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromFloat(0.91)) {
		t.Errorf("rate = %s, want 0.91", r)
	}

	// Second lookup is served from the cache.
	if _, err := c.Rate("USD", "EUR", on); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}

	// Identity pairs never hit the service.
	r, err = c.Rate("EUR", "EUR", on)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.NewFromInt(1)) || hits != 1 {
		t.Errorf("identity rate = %s after %d hits", r, hits)
	}
}

func TestClient_RateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such date", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	if _, err := c.Rate("USD", "EUR", date.MustParse("2025-03-03")); !errors.Is(err, ErrRateNotFound) {
		t.Errorf("rate error = %v, want ErrRateNotFound", err)
	}
}

func TestPrefetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"EUR":0.9}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	period := date.Range{From: date.MustParse("2025-03-01"), To: date.MustParse("2025-03-03")}
	tbl, err := Prefetch(context.Background(), c, "EUR", []string{"USD", "EUR"}, period)
	if err != nil {
		t.Fatal(err)
	}
	for on := period.From; !on.After(period.To); on = on.Add(1) {
		r, err := tbl.Rate("USD", "EUR", on)
		if err != nil {
			t.Fatalf("missing prefetched rate on %s: %v", on, err)
		}
		if !r.Equal(decimal.NewFromFloat(0.9)) {
			t.Errorf("rate on %s = %s, want 0.9", on, r)
		}
	}
}
