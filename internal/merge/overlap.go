package merge

import (
	"sort"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// reconcileOverlaps implements spec §4.3 step 9: clip every candidate to
// its chunk's effective window, sort, then left-to-right coalesce
// near-adjacent same-speaker runs.
func reconcileOverlaps(candidates []models.CandidateSegment, coalesceGap float64) []models.GlobalSegment {
	clipped := make([]models.CandidateSegment, 0, len(candidates))
	for _, c := range candidates {
		actualStart := c.Start
		if c.EffectiveStart > actualStart {
			actualStart = c.EffectiveStart
		}
		actualEnd := c.End
		if c.EffectiveEnd < actualEnd {
			actualEnd = c.EffectiveEnd
		}
		if actualStart >= actualEnd {
			continue
		}
		clipped = append(clipped, models.CandidateSegment{
			Start:   actualStart,
			End:     actualEnd,
			Speaker: c.Speaker,
		})
	}

	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start != clipped[j].Start {
			return clipped[i].Start < clipped[j].Start
		}
		if clipped[i].End != clipped[j].End {
			return clipped[i].End < clipped[j].End
		}
		return clipped[i].Speaker < clipped[j].Speaker
	})

	var out []models.GlobalSegment
	for _, c := range clipped {
		if len(out) > 0 {
			tail := &out[len(out)-1]
			if tail.Speaker == c.Speaker && c.Start-tail.End < coalesceGap {
				if c.End > tail.End {
					tail.End = c.End
				}
				continue
			}
		}
		out = append(out, models.GlobalSegment{Start: c.Start, End: c.End, Speaker: c.Speaker})
	}

	if out == nil {
		out = []models.GlobalSegment{}
	}
	return out
}
