package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"faceattend/internal/apperr"
)

// RemoteEngine delegates detection and embedding to an external face
// service over HTTP. Useful when a heavier model (e.g. a 512-d network)
// runs out of process; selected with FACE_BACKEND=remote.
type RemoteEngine struct {
	BaseURL string
	HTTP    *http.Client
	dim     int
}

// NewRemoteEngine creates a client for the face service.
func NewRemoteEngine(baseURL string, dim int) *RemoteEngine {
	if dim <= 0 {
		dim = 128
	}
	return &RemoteEngine{
		BaseURL: baseURL,
		dim:     dim,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // model inference can be slow
		},
	}
}

// Locate posts the frame to /detect.
func (r *RemoteEngine) Locate(ctx context.Context, frame *Image) ([]Detection, error) {
	b64, err := frame.Base64JPEG()
	if err != nil {
		return nil, err
	}
	var out struct {
		Faces []struct {
			Box        [4]int  `json:"box"`
			Confidence float64 `json:"confidence"`
		} `json:"faces"`
	}
	if err := r.post(ctx, "/detect", map[string]string{"image": b64}, &out); err != nil {
		return nil, err
	}
	dets := make([]Detection, 0, len(out.Faces))
	for _, f := range out.Faces {
		b := Box{X: f.Box[0], Y: f.Box[1], W: f.Box[2], H: f.Box[3]}
		if b.W < MinFaceSize || b.H < MinFaceSize {
			continue
		}
		dets = append(dets, Detection{Box: b, Confidence: f.Confidence})
	}
	return SuppressOverlaps(dets, 0.4), nil
}

// Embed posts the crop to /embed.
func (r *RemoteEngine) Embed(ctx context.Context, crop *Image) ([]float32, error) {
	if err := validateCrop(crop); err != nil {
		return nil, err
	}
	b64, err := crop.Base64JPEG()
	if err != nil {
		return nil, err
	}
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := r.post(ctx, "/embed", map[string]string{"image": b64}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: face service returned no embedding", apperr.ErrInvalidInput)
	}
	if len(out.Embedding) != r.dim {
		return nil, fmt.Errorf("face service returned %d-d embedding, want %d", len(out.Embedding), r.dim)
	}
	return out.Embedding, nil
}

// Dim returns the configured embedding length.
func (r *RemoteEngine) Dim() int { return r.dim }

// Healthy checks the face service /health endpoint.
func (r *RemoteEngine) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

// Close is a no-op; the remote service owns its resources.
func (r *RemoteEngine) Close() {}

func (r *RemoteEngine) post(ctx context.Context, path string, payload any, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
