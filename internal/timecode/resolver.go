// Package timecode converts nominal catalog track durations into absolute
// chapter timecodes over the actual duration of the audio file.
//
// The catalog and the file are independent sources of truth: different
// masters, trimmed silence and encoder padding all shift the totals.
// Proportional rescaling preserves the catalog's relative chapter lengths
// while pinning the partition exactly to the file.
package timecode

import (
	"fmt"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// DefaultDriftTolerance is the maximum relative disagreement between the
// catalog total and the probed file duration before the match is treated
// as suspect (wrong edition, abridged recording).
const DefaultDriftTolerance = 0.15

// Track is one nominal chapter entry, in chapter order.
// Kept local so the resolver stays independent of the catalog client.
type Track struct {
	Name       string
	DurationMs int64
}

// Marker is one resolved chapter. Markers form a contiguous,
// non-overlapping, strictly increasing partition of [0, actualDurationMs];
// the final EndMs equals actualDurationMs exactly.
type Marker struct {
	Index   int
	Title   string
	StartMs int64
	EndMs   int64
}

// Options configures resolution.
type Options struct {
	// DriftTolerance overrides DefaultDriftTolerance when > 0.
	DriftTolerance float64
}

// Resolve rescales tracks onto [0, actualDurationMs].
//
// Each track's resolved duration is round(nominal * actual / nominalTotal);
// the rounding residual lands entirely on the last track so the partition
// invariant holds exactly, not approximately.
func Resolve(tracks []Track, actualDurationMs int64, opts Options) ([]Marker, error) {
	if len(tracks) == 0 {
		return nil, errors.UnresolvableTimecodes("catalog track list is empty")
	}
	if actualDurationMs <= 0 {
		return nil, errors.UnresolvableTimecodes(fmt.Sprintf("actual duration %dms is not positive", actualDurationMs))
	}
	if actualDurationMs < int64(len(tracks)) {
		// Strictly increasing markers need at least 1ms per chapter.
		return nil, errors.UnresolvableTimecodes(fmt.Sprintf("%d tracks cannot partition %dms", len(tracks), actualDurationMs))
	}

	var nominalTotal int64
	for i, tr := range tracks {
		if tr.DurationMs <= 0 {
			return nil, errors.UnresolvableTimecodes(fmt.Sprintf("track %d has non-positive nominal duration %dms", i, tr.DurationMs))
		}
		nominalTotal += tr.DurationMs
	}

	tolerance := opts.DriftTolerance
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}

	drift := float64(abs(actualDurationMs-nominalTotal)) / float64(nominalTotal)
	if drift > tolerance {
		return nil, errors.DurationMismatchf(
			"catalog total %dms vs file duration %dms: drift %.1f%% exceeds tolerance %.1f%% (wrong edition?)",
			nominalTotal, actualDurationMs, drift*100, tolerance*100,
		)
	}

	markers := make([]Marker, len(tracks))
	var cursor int64
	for i, tr := range tracks {
		resolved := roundedShare(tr.DurationMs, actualDurationMs, nominalTotal)
		if resolved < 1 {
			// A chapter that rounds away entirely still has to exist;
			// the widening comes out of the final residual.
			resolved = 1
		}

		markers[i] = Marker{
			Index:   i,
			Title:   title(tr.Name, i),
			StartMs: cursor,
			EndMs:   cursor + resolved,
		}
		cursor += resolved
	}

	// Push the rounding residual onto the last marker.
	last := &markers[len(markers)-1]
	last.EndMs = actualDurationMs
	if last.EndMs <= last.StartMs {
		// The residual was negative enough to swallow the final chapter.
		// Possible only with extreme rounding pile-up on tiny inputs.
		return nil, errors.UnresolvableTimecodes("rounding residual eliminated the final chapter")
	}

	return markers, nil
}

// roundedShare computes round(nominal * actual / total) in integer math.
func roundedShare(nominal, actual, total int64) int64 {
	return (nominal*actual + total/2) / total
}

func title(name string, index int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Chapter %d", index+1)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
