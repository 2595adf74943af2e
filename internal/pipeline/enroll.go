package pipeline

import (
	"context"
	"fmt"
	"log"

	"faceattend/internal/apperr"
	"faceattend/internal/facerec"
	"faceattend/internal/identity"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
)

// EnrollRequest carries one enrollment: the profile plus one capture
// image per direction (front, left, right, up, down).
type EnrollRequest struct {
	UserID     string
	Name       string
	Email      string
	Role       string
	Department string
	Year       string
	Division   string
	Images     []string
	Replace    bool
}

// Enroll runs the capture images through the locator and codec and
// stores the identity. All-or-nothing: any capture without a usable
// face rejects the whole enrollment before the store is touched.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) error {
	if want := s.ids.RequiredEmbeddings(); len(req.Images) != want {
		metrics.EnrollmentsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: got %d capture images, need %d",
			apperr.ErrValidation, len(req.Images), want)
	}

	embeddings := make([][]float32, 0, len(req.Images))
	photoURLs := make([]string, 0, len(req.Images))

	for i, data := range req.Images {
		frame, err := facerec.DecodeBase64(data)
		if err != nil {
			metrics.EnrollmentsTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: capture %d: %v", apperr.ErrValidation, i+1, err)
		}
		dets, err := s.locator.Locate(ctx, frame)
		if err != nil {
			metrics.EnrollmentsTotal.WithLabelValues("error").Inc()
			return timeoutErr(ctx, fmt.Errorf("capture %d: %w", i+1, err))
		}
		face := largest(dets)
		if face == nil {
			metrics.EnrollmentsTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: capture %d: no detectable face", apperr.ErrValidation, i+1)
		}
		emb, err := s.codec.Embed(ctx, frame.Crop(face.Box))
		if err != nil {
			if ctx.Err() != nil {
				metrics.EnrollmentsTotal.WithLabelValues("error").Inc()
				return timeoutErr(ctx, fmt.Errorf("capture %d: %w", i+1, err))
			}
			metrics.EnrollmentsTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: capture %d: face not encodable", apperr.ErrValidation, i+1)
		}
		embeddings = append(embeddings, emb)
		photoURLs = append(photoURLs, s.archivePhoto(req.UserID, i, data))
	}

	id := identity.Identity{
		UserID:     req.UserID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
		Year:       req.Year,
		Division:   req.Division,
		Embeddings: embeddings,
		PhotoURLs:  photoURLs,
	}
	if err := s.ids.Enroll(ctx, id, req.Replace); err != nil {
		metrics.EnrollmentsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.EnrollmentsTotal.WithLabelValues("ok").Inc()

	if s.jobs != nil {
		msg := queue.Message{Type: queue.TypeGalleryRebuild, Body: req.UserID}
		if err := s.jobs.Publish(ctx, msg); err != nil {
			// The worker also rebuilds periodically; log and move on.
			log.Printf("publish gallery rebuild: %v", err)
		}
	}
	return nil
}

// archivePhoto uploads a capture off-box, best effort. Photos are an
// audit convenience, never an enrollment requirement.
func (s *Service) archivePhoto(userID string, idx int, data string) string {
	if s.archive == nil {
		return ""
	}
	url, err := s.archive.UploadBase64(data)
	if err != nil {
		log.Printf("archive photo %d for %s: %v", idx+1, userID, err)
		return ""
	}
	return url
}

func largest(dets []facerec.Detection) *facerec.Detection {
	var best *facerec.Detection
	area := 0
	for i := range dets {
		if a := dets[i].Box.W * dets[i].Box.H; a > area {
			area = a
			best = &dets[i]
		}
	}
	return best
}
