// Package pipeline orchestrates recognition: locate faces, embed each,
// match against the enrolled population and, in session mode, mark
// attendance. It also drives enrollment, which shares the locator and
// codec.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"faceattend/internal/apperr"
	"faceattend/internal/facerec"
	"faceattend/internal/identity"
	"faceattend/internal/match"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/session"
)

// Identities is the slice of the identity service the pipeline needs.
type Identities interface {
	Candidates(ctx context.Context, f identity.Filter) ([]identity.Identity, error)
	Enroll(ctx context.Context, id identity.Identity, replace bool) error
	RequiredEmbeddings() int
}

// Sessions is the slice of the session manager the pipeline needs.
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	MarkPresent(ctx context.Context, sessionID, studentID, name string, confidence float64) (*session.Record, bool, error)
}

// Archiver stores enrollment photos off-box; optional.
type Archiver interface {
	UploadBase64(data string) (url string, err error)
}

// Publisher hands jobs to the worker; optional.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// How many identities the gallery shortlists for an unfiltered probe
// before exact re-scoring.
const shortlistSize = 16

// Service wires the recognition stages together.
type Service struct {
	locator  facerec.Locator
	codec    facerec.Codec
	ids      Identities
	sessions Sessions
	gallery  *match.Gallery
	matcher  match.Matcher
	archive  Archiver
	jobs     Publisher
}

// New creates a pipeline. archive and jobs may be nil.
func New(locator facerec.Locator, codec facerec.Codec, ids Identities, sessions Sessions,
	gallery *match.Gallery, matcher match.Matcher, archive Archiver, jobs Publisher) *Service {
	return &Service{
		locator:  locator,
		codec:    codec,
		ids:      ids,
		sessions: sessions,
		gallery:  gallery,
		matcher:  matcher,
		archive:  archive,
		jobs:     jobs,
	}
}

// Request is one recognition frame. SessionID selects session mode;
// otherwise Filter (possibly empty) scopes a demo recognition.
type Request struct {
	Image     string
	SessionID string
	Filter    identity.Filter
	Annotate  bool
}

// Face statuses reported per detected face. StatusMatched is the demo
// outcome; only session mode promotes it to a marking status.
const (
	StatusMatched   = "matched"
	StatusMarked    = "marked_present"
	StatusDuplicate = "duplicate"
	StatusNoMatch   = "no_match"
	StatusError     = "embed_failed"
)

// FaceResult is the outcome for one detected face.
type FaceResult struct {
	Box           facerec.Box
	Match         *match.Result
	Distance      *float64
	Confidence    *float64
	AlreadyMarked bool
	Status        string
}

// Response is the outcome for one frame.
type Response struct {
	Faces          []FaceResult
	ProcessedImage string
}

// Recognize processes one frame. A face whose embedding fails is
// reported with a nil match and the batch continues; a store failure
// fails the whole request with no partial results.
func (s *Service) Recognize(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer func() { metrics.RecognizeDuration.Observe(time.Since(start).Seconds()) }()

	mode := "demo"
	if req.SessionID != "" {
		mode = "session"
	}
	metrics.FramesTotal.WithLabelValues(mode).Inc()

	frame, err := facerec.DecodeBase64(req.Image)
	if err != nil {
		return nil, err
	}

	filter := req.Filter
	var sess *session.Session
	if req.SessionID != "" {
		sess, err = s.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		filter = identity.Filter{
			Department: sess.Department,
			Year:       sess.Year,
			Division:   sess.Division,
		}
	}

	dets, err := s.locator.Locate(ctx, frame)
	if err != nil {
		return nil, timeoutErr(ctx, fmt.Errorf("locate: %w", err))
	}
	metrics.FacesDetected.Add(float64(len(dets)))
	if len(dets) == 0 {
		// No faces is an honest empty result, never an error.
		return &Response{Faces: []FaceResult{}}, nil
	}

	candidates, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &Response{Faces: make([]FaceResult, 0, len(dets))}
	labels := make([]facerec.Label, 0, len(dets))

	for _, det := range dets {
		res := FaceResult{Box: det.Box, Status: StatusNoMatch}

		probe, err := s.codec.Embed(ctx, frame.Crop(det.Box))
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeoutErr(ctx, err)
			}
			// One bad crop does not abort the batch.
			log.Printf("embed failed for box %+v: %v", det.Box, err)
			metrics.MatchesTotal.WithLabelValues("error").Inc()
			res.Status = StatusError
			resp.Faces = append(resp.Faces, res)
			labels = append(labels, facerec.Label{Box: det.Box, Text: "?"})
			continue
		}

		cands := candidates
		if cands == nil {
			cands = s.gallery.Shortlist(probe, shortlistSize)
		}
		best, dist := s.matcher.Best(probe, cands)
		if d := dist; !math.IsInf(d, 1) {
			res.Distance = &d
			// Cosine distance runs to 2.0; floor the percentage.
			conf := (1 - d) * 100
			if conf < 0 {
				conf = 0
			}
			res.Confidence = &conf
		}

		if best == nil {
			metrics.MatchesTotal.WithLabelValues("no_match").Inc()
			resp.Faces = append(resp.Faces, res)
			labels = append(labels, facerec.Label{Box: det.Box, Text: "unknown"})
			continue
		}
		metrics.MatchesTotal.WithLabelValues("match").Inc()
		res.Match = best
		res.Status = StatusMatched

		if sess != nil {
			conf := 0.0
			if res.Confidence != nil {
				conf = *res.Confidence
			}
			_, fresh, err := s.sessions.MarkPresent(ctx, sess.ID, best.UserID, best.Name, conf)
			if err != nil {
				// Marking is transactional with the frame: a store
				// failure must not hand back ambiguous success.
				return nil, timeoutErr(ctx, err)
			}
			if fresh {
				metrics.MarksTotal.WithLabelValues("marked").Inc()
				res.Status = StatusMarked
			} else {
				metrics.MarksTotal.WithLabelValues("duplicate").Inc()
				res.AlreadyMarked = true
				res.Status = StatusDuplicate
			}
		}

		resp.Faces = append(resp.Faces, res)
		labels = append(labels, facerec.Label{Box: det.Box, Text: best.Name, Matched: true})
	}

	if req.Annotate {
		if b64, err := frame.Annotate(labels).Base64JPEG(); err == nil {
			resp.ProcessedImage = b64
		}
	}
	return resp, nil
}

// candidates resolves the population once per frame. Nil means "no
// filter": the per-probe gallery shortlist applies, falling back to
// the full population while the index is empty.
func (s *Service) candidates(ctx context.Context, f identity.Filter) ([]match.Candidate, error) {
	if f.Empty() && s.gallery != nil && s.gallery.Len() > 0 {
		return nil, nil
	}
	ids, err := s.ids.Candidates(ctx, f)
	if err != nil {
		return nil, timeoutErr(ctx, err)
	}
	return toCandidates(ids), nil
}

// RefreshGallery re-indexes every enrolled embedding. Called by the
// worker on gallery.rebuild jobs and at startup.
func (s *Service) RefreshGallery(ctx context.Context) error {
	if s.gallery == nil {
		return nil
	}
	ids, err := s.ids.Candidates(ctx, identity.Filter{})
	if err != nil {
		return err
	}
	s.gallery.Rebuild(toCandidates(ids))
	log.Printf("gallery rebuilt with %d identities", len(ids))
	return nil
}

func toCandidates(ids []identity.Identity) []match.Candidate {
	out := make([]match.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, match.Candidate{
			UserID:     id.UserID,
			Name:       id.Name,
			Embeddings: id.Embeddings,
		})
	}
	return out
}

func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperr.ErrTimeout, err)
	}
	return err
}
