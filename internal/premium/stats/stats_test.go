package stats

import (
	"fmt"
	"testing"

	"premiumflow/internal/premium/memorystore"
)

func trades(pairs ...any) []memorystore.Trade {
	var out []memorystore.Trade
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, memorystore.Trade{Ticker: pairs[i].(string), Premium: pairs[i+1].(float64)})
	}
	return out
}

// go test -v --run TestSummarize
func TestSummarize(t *testing.T) {
	ts := trades("AAPL", 10000.0, "SPY", 50000.0, "AAPL", 30000.0)

	all := Summarize(ts, "")
	if all.Count != 3 || all.Highest != 50000 || all.Total != 90000 || all.Average != 30000 {
		t.Errorf("unexpected summary: %+v", all)
	}

	aapl := Summarize(ts, "AAPL")
	if aapl.Count != 2 || aapl.Highest != 30000 || aapl.Average != 20000 {
		t.Errorf("unexpected AAPL summary: %+v", aapl)
	}

	if none := Summarize(ts, "MSFT"); none != (Summary{}) {
		t.Errorf("expected empty summary, got %+v", none)
	}
}

// go test -v --run TestDistribution
func TestDistribution(t *testing.T) {
	ts := trades(
		"A", 5000.0,
		"A", 10000.0,
		"A", 24999.99,
		"A", 25000.0,
		"A", 99999.0,
		"A", 250000.0,
		"A", 500000.0,
		"A", 2e6,
	)
	got := Distribution(ts)
	want := []int{1, 2, 1, 1, 0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets", len(got))
	}
	for i, b := range got {
		if b.Count != want[i] {
			t.Errorf("bucket %s = %d, want %d", b.Label, b.Count, want[i])
		}
	}
}

// go test -v --run TestTopTickers
func TestTopTickers(t *testing.T) {
	var ts []memorystore.Trade
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			ts = append(ts, memorystore.Trade{Ticker: fmt.Sprintf("T%02d", i), Premium: 1000})
		}
	}

	top := TopTickers(ts, DefaultTopTickers)
	if len(top) != 10 {
		t.Fatalf("len = %d, want 10", len(top))
	}
	if top[0].Ticker != "T11" || top[0].Count != 12 || top[0].Premium != 12000 {
		t.Errorf("unexpected leader: %+v", top[0])
	}
	if top[9].Ticker != "T02" {
		t.Errorf("unexpected tail: %+v", top[9])
	}

	tie := TopTickers(trades("B", 1.0, "A", 1.0, "C", 5.0), 0)
	if tie[0].Ticker != "C" || tie[1].Ticker != "A" || tie[2].Ticker != "B" {
		t.Errorf("unexpected tie order: %+v", tie)
	}
}
