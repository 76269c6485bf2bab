package timecode

import (
	"testing"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// checkPartition asserts the contiguous strictly-increasing partition
// invariant over [0, total].
func checkPartition(t *testing.T, markers []Marker, total int64) {
	t.Helper()

	if len(markers) == 0 {
		t.Fatal("no markers")
	}
	if markers[0].StartMs != 0 {
		t.Errorf("first marker starts at %d, want 0", markers[0].StartMs)
	}
	for i, m := range markers {
		if m.EndMs <= m.StartMs {
			t.Errorf("marker %d not strictly increasing: [%d, %d]", i, m.StartMs, m.EndMs)
		}
		if i > 0 && m.StartMs != markers[i-1].EndMs {
			t.Errorf("gap before marker %d: prev end %d, start %d", i, markers[i-1].EndMs, m.StartMs)
		}
		if m.Index != i {
			t.Errorf("marker %d carries index %d", i, m.Index)
		}
	}
	if last := markers[len(markers)-1]; last.EndMs != total {
		t.Errorf("final end = %d, want exactly %d", last.EndMs, total)
	}
}

func TestResolve_ExactNominalMatch(t *testing.T) {
	tracks := []Track{
		{Name: "One", DurationMs: 60000},
		{Name: "Two", DurationMs: 120000},
		{Name: "Three", DurationMs: 60000},
	}

	markers, err := Resolve(tracks, 240000, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	checkPartition(t, markers, 240000)

	want := []int64{60000, 120000, 60000}
	for i, m := range markers {
		if got := m.EndMs - m.StartMs; got != want[i] {
			t.Errorf("marker %d duration = %d, want %d", i, got, want[i])
		}
	}
}

func TestResolve_ProportionalRescaling(t *testing.T) {
	// Catalog says 100s total, file is actually 90s (10% drift).
	tracks := []Track{
		{Name: "A", DurationMs: 25000},
		{Name: "B", DurationMs: 25000},
		{Name: "C", DurationMs: 50000},
	}

	markers, err := Resolve(tracks, 90000, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	checkPartition(t, markers, 90000)

	// Every non-final chapter lands within one rounding unit of its
	// proportional share; the final chapter absorbs the residual.
	for i, m := range markers[:len(markers)-1] {
		wantShare := float64(tracks[i].DurationMs) / 100000 * 90000
		got := float64(m.EndMs - m.StartMs)
		if diff := got - wantShare; diff > 1 || diff < -1 {
			t.Errorf("marker %d duration %v, want ~%v", i, got, wantShare)
		}
	}
}

func TestResolve_ResidualGoesToLastTrack(t *testing.T) {
	// Three equal tracks over a duration not divisible by three.
	tracks := []Track{
		{Name: "A", DurationMs: 1000},
		{Name: "B", DurationMs: 1000},
		{Name: "C", DurationMs: 1000},
	}

	markers, err := Resolve(tracks, 3001, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	checkPartition(t, markers, 3001)

	if d0, d1 := spanOf(markers[0]), spanOf(markers[1]); d0 != d1 {
		t.Errorf("non-final durations differ: %d vs %d", d0, d1)
	}
}

func TestResolve_DriftGuard(t *testing.T) {
	tracks := []Track{{Name: "Only", DurationMs: 10_000_000}}

	_, err := Resolve(tracks, 1_000_000, Options{DriftTolerance: 0.15})
	if !errors.Is(err, errors.ErrDurationMismatch) {
		t.Fatalf("error = %v, want duration mismatch", err)
	}
}

func TestResolve_DriftJustInsideTolerance(t *testing.T) {
	tracks := []Track{{Name: "Only", DurationMs: 100000}}

	markers, err := Resolve(tracks, 114000, Options{DriftTolerance: 0.15})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	checkPartition(t, markers, 114000)
}

func TestResolve_EmptyTrackList(t *testing.T) {
	_, err := Resolve(nil, 1_000_000, Options{})
	if !errors.Is(err, errors.ErrUnresolvableTimecodes) {
		t.Fatalf("error = %v, want unresolvable", err)
	}
}

func TestResolve_NonPositiveNominalDuration(t *testing.T) {
	tracks := []Track{
		{Name: "A", DurationMs: 1000},
		{Name: "B", DurationMs: 0},
	}
	_, err := Resolve(tracks, 2000, Options{})
	if !errors.Is(err, errors.ErrUnresolvableTimecodes) {
		t.Fatalf("error = %v, want unresolvable", err)
	}
}

func TestResolve_NonPositiveActualDuration(t *testing.T) {
	tracks := []Track{{Name: "A", DurationMs: 1000}}
	for _, actual := range []int64{0, -5} {
		if _, err := Resolve(tracks, actual, Options{}); !errors.Is(err, errors.ErrUnresolvableTimecodes) {
			t.Errorf("Resolve(actual=%d) error = %v, want unresolvable", actual, err)
		}
	}
}

func TestResolve_EmptyTitlesGetFallback(t *testing.T) {
	tracks := []Track{
		{Name: "", DurationMs: 1000},
		{Name: "Named", DurationMs: 1000},
		{Name: "", DurationMs: 1000},
	}

	markers, err := Resolve(tracks, 3000, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if markers[0].Title != "Chapter 1" {
		t.Errorf("title[0] = %q", markers[0].Title)
	}
	if markers[1].Title != "Named" {
		t.Errorf("title[1] = %q", markers[1].Title)
	}
	if markers[2].Title != "Chapter 3" {
		t.Errorf("title[2] = %q", markers[2].Title)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	tracks := []Track{
		{Name: "A", DurationMs: 333},
		{Name: "B", DurationMs: 667},
	}

	first, err := Resolve(tracks, 1100, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(tracks, 1100, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("marker %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func spanOf(m Marker) int64 {
	return m.EndMs - m.StartMs
}
