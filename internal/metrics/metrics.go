// Package metrics registers the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts processed recognition frames by mode
	// (demo/session).
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_frames_total",
		Help: "Recognition frames processed.",
	}, []string{"mode"})

	// FacesDetected counts faces located across all frames.
	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_faces_detected_total",
		Help: "Faces located by the detector.",
	})

	// MatchesTotal counts match outcomes.
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_matches_total",
		Help: "Match outcomes by result (match/no_match/error).",
	}, []string{"result"})

	// MarksTotal counts attendance marks by outcome
	// (marked/duplicate).
	MarksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_marks_total",
		Help: "Attendance marks by outcome.",
	}, []string{"outcome"})

	// RecognizeDuration observes end-to-end frame latency.
	RecognizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "faceattend_recognize_duration_seconds",
		Help:    "End-to-end recognition latency per frame.",
		Buckets: prometheus.DefBuckets,
	})

	// EnrollmentsTotal counts enrollment attempts by result.
	EnrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_enrollments_total",
		Help: "Enrollment attempts by result (ok/rejected/error).",
	}, []string{"result"})
)
