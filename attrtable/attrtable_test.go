package attrtable_test

import (
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/salanous/spacesyntax/attrtable"
)

func TestInsertOrResetColumn(t *testing.T) {
	tab := attrtable.New[int]()
	id := tab.InsertOrResetColumn("depth")
	if id != 0 {
		t.Fatalf("first column id = %d, want 0", id)
	}
	tab.Set(1, "depth", 2.5)
	tab.Set(2, "depth", 3.5)

	// re-inserting resets every row to NaN but keeps the id
	if got := tab.InsertOrResetColumn("depth"); got != id {
		t.Errorf("reset changed column id: %d -> %d", id, got)
	}
	v, err := tab.Get(1, "depth")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(v) {
		t.Errorf("value after reset = %v, want NaN", v)
	}
}

func TestRowsGainColumnsLazily(t *testing.T) {
	tab := attrtable.New[string]()
	tab.Set("a", "one", 1)
	tab.InsertOrResetColumn("two")
	tab.Set("a", "two", 2)
	tab.Set("b", "one", 10)

	got := map[string]float64{}
	for _, key := range tab.Keys() {
		for _, col := range tab.Columns() {
			v, err := tab.Get(key, col)
			if err != nil {
				t.Fatal(err)
			}
			if !math.IsNaN(v) {
				got[key+"/"+col] = v
			}
		}
	}
	want := map[string]float64{"a/one": 1, "a/two": 2, "b/one": 10}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table contents (-want +got):\n%s", diff)
	}
}

func TestStats(t *testing.T) {
	tab := attrtable.New[int]()
	for i, v := range []float64{3, 1, 4, 1, 5} {
		tab.Set(i, "col", v)
	}
	tab.EnsureRow(99) // NaN row must not count
	s, err := tab.Stats("col")
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 5 || s.Min != 1 || s.Max != 5 || s.Total != 14 {
		t.Errorf("Stats = %+v, want Count 5 Min 1 Max 5 Total 14", s)
	}
}

func TestMissingLookups(t *testing.T) {
	tab := attrtable.New[int]()
	if _, err := tab.Get(0, "none"); err != attrtable.ErrColumnNotFound {
		t.Errorf("Get missing column: err = %v, want ErrColumnNotFound", err)
	}
	tab.InsertOrResetColumn("col")
	if _, err := tab.Get(0, "col"); err != attrtable.ErrRowNotFound {
		t.Errorf("Get missing row: err = %v, want ErrRowNotFound", err)
	}
}

// TestConcurrentWriters exercises the parallel-analysis merge pattern:
// many goroutines writing disjoint rows of a shared table.
func TestConcurrentWriters(t *testing.T) {
	tab := attrtable.New[int]()
	tab.InsertOrResetColumn("val")
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tab.Set(w*100+i, "val", float64(w))
			}
		}(w)
	}
	wg.Wait()
	if got := len(tab.Keys()); got != 800 {
		t.Errorf("rows = %d, want 800", got)
	}
}
