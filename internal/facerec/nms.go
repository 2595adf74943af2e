package facerec

import "sort"

// SuppressOverlaps drops detections that overlap a higher-confidence
// detection beyond the IoU threshold. Detectors mostly emit disjoint
// boxes already; this catches the stragglers around profile faces.
func SuppressOverlaps(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) < 2 {
		return dets
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := sorted[:0]
	for _, d := range sorted {
		overlapped := false
		for _, k := range kept {
			if iou(d.Box, k.Box) > iouThreshold {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b Box) float64 {
	ix := overlap(a.X, a.X+a.W, b.X, b.X+b.W)
	iy := overlap(a.Y, a.Y+a.H, b.Y, b.Y+b.H)
	inter := float64(ix * iy)
	if inter <= 0 {
		return 0
	}
	union := float64(a.W*a.H+b.W*b.H) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func overlap(a1, a2, b1, b2 int) int {
	lo, hi := a1, a2
	if b1 > lo {
		lo = b1
	}
	if b2 < hi {
		hi = b2
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}
