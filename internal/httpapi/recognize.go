package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/apperr"
	"faceattend/internal/identity"
	"faceattend/internal/pipeline"
	"faceattend/internal/session"
)

type recognizeRequest struct {
	Image      string `json:"image"`
	SessionID  string `json:"session_id"`
	Department string `json:"department"`
	Year       string `json:"year"`
	Division   string `json:"division"`
	Annotate   *bool  `json:"annotate"`
}

type matchBody struct {
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

type faceBody struct {
	Box           [4]int     `json:"box"`
	Match         *matchBody `json:"match"`
	Confidence    *float64   `json:"confidence,omitempty"`
	Status        string     `json:"status"`
	AlreadyMarked bool       `json:"already_marked,omitempty"`
}

type recognizeResponse struct {
	Success        bool       `json:"success"`
	Faces          []faceBody `json:"faces"`
	ProcessedImage string     `json:"processed_image,omitempty"`
}

// demoRecognize matches faces without touching attendance. Optional
// class filters narrow the candidate population.
func (h *Handler) demoRecognize(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	if req.Image == "" {
		writeErr(c, fmt.Errorf("%w: image is required", apperr.ErrValidation))
		return
	}

	resp, err := h.Pipe.Recognize(c.Request.Context(), pipeline.Request{
		Image: req.Image,
		Filter: identity.Filter{
			Department: req.Department,
			Year:       req.Year,
			Division:   req.Division,
		},
		Annotate: annotate(req.Annotate),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecognizeResponse(resp))
}

// realMark recognizes against a live session and marks matches present.
func (h *Handler) realMark(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	if req.Image == "" || req.SessionID == "" {
		writeErr(c, fmt.Errorf("%w: image and session_id are required", apperr.ErrValidation))
		return
	}

	resp, err := h.Pipe.Recognize(c.Request.Context(), pipeline.Request{
		Image:     req.Image,
		SessionID: req.SessionID,
		Annotate:  annotate(req.Annotate),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecognizeResponse(resp))
}

func (h *Handler) createSession(c *gin.Context) {
	var f session.Filters
	if err := c.ShouldBindJSON(&f); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	sess, err := h.Sessions.Create(c.Request.Context(), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "session_id": sess.ID, "session": sess})
}

func (h *Handler) endSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		writeErr(c, fmt.Errorf("%w: session_id is required", apperr.ErrValidation))
		return
	}
	summary, err := h.Sessions.Finalize(c.Request.Context(), req.SessionID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func toRecognizeResponse(resp *pipeline.Response) recognizeResponse {
	out := recognizeResponse{
		Success:        true,
		Faces:          make([]faceBody, 0, len(resp.Faces)),
		ProcessedImage: resp.ProcessedImage,
	}
	for _, f := range resp.Faces {
		face := faceBody{
			Box:           [4]int{f.Box.X, f.Box.Y, f.Box.W, f.Box.H},
			Confidence:    f.Confidence,
			Status:        f.Status,
			AlreadyMarked: f.AlreadyMarked,
		}
		if f.Match != nil {
			face.Match = &matchBody{
				UserID:   f.Match.UserID,
				Name:     f.Match.Name,
				Distance: f.Match.Distance,
			}
		}
		out.Faces = append(out.Faces, face)
	}
	return out
}

// annotate defaults to true; clients opt out for bandwidth.
func annotate(v *bool) bool {
	return v == nil || *v
}
