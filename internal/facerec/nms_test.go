package facerec

import "testing"

func TestSuppressOverlapsKeepsDisjoint(t *testing.T) {
	dets := []Detection{
		{Box: Box{X: 0, Y: 0, W: 50, H: 50}, Confidence: 0.9},
		{Box: Box{X: 100, Y: 100, W: 50, H: 50}, Confidence: 0.8},
	}
	if got := SuppressOverlaps(dets, 0.4); len(got) != 2 {
		t.Fatalf("kept %d, want 2", len(got))
	}
}

func TestSuppressOverlapsDropsDuplicates(t *testing.T) {
	dets := []Detection{
		{Box: Box{X: 0, Y: 0, W: 50, H: 50}, Confidence: 0.7},
		{Box: Box{X: 2, Y: 2, W: 50, H: 50}, Confidence: 0.95},
		{Box: Box{X: 100, Y: 0, W: 50, H: 50}, Confidence: 0.6},
	}
	got := SuppressOverlaps(dets, 0.4)
	if len(got) != 2 {
		t.Fatalf("kept %d, want 2", len(got))
	}
	// The higher-confidence duplicate survives.
	if got[0].Confidence != 0.95 {
		t.Fatalf("kept confidence %v first, want 0.95", got[0].Confidence)
	}
}

func TestSuppressOverlapsSingleAndEmpty(t *testing.T) {
	if got := SuppressOverlaps(nil, 0.4); len(got) != 0 {
		t.Fatalf("nil input kept %d", len(got))
	}
	one := []Detection{{Box: Box{W: 10, H: 10}, Confidence: 1}}
	if got := SuppressOverlaps(one, 0.4); len(got) != 1 {
		t.Fatalf("single input kept %d", len(got))
	}
}

func TestIoU(t *testing.T) {
	a := Box{X: 0, Y: 0, W: 10, H: 10}
	if got := iou(a, a); got != 1 {
		t.Fatalf("iou(a,a) = %v, want 1", got)
	}
	b := Box{X: 20, Y: 20, W: 10, H: 10}
	if got := iou(a, b); got != 0 {
		t.Fatalf("disjoint iou = %v, want 0", got)
	}
	half := Box{X: 5, Y: 0, W: 10, H: 10}
	got := iou(a, half)
	if got <= 0.3 || got >= 0.4 {
		// 50/150 ≈ 0.333
		t.Fatalf("half-overlap iou = %v", got)
	}
}
