package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/apperr"
	"faceattend/internal/attendance"
	"faceattend/internal/identity"
	"faceattend/internal/pipeline"
)

type registerRequest struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Department string   `json:"department"`
	Year       string   `json:"year"`
	Division   string   `json:"division"`
	Images     []string `json:"images"`
	Replace    bool     `json:"replace"`
}

// register enrolls an identity with the given role from its capture
// images.
func (h *Handler) register(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
			return
		}
		err := h.Pipe.Enroll(c.Request.Context(), pipeline.EnrollRequest{
			UserID:     req.UserID,
			Name:       req.Name,
			Email:      req.Email,
			Role:       role,
			Department: req.Department,
			Year:       req.Year,
			Division:   req.Division,
			Images:     req.Images,
			Replace:    req.Replace,
		})
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "user_id": req.UserID})
	}
}

func (h *Handler) listStudents(c *gin.Context) {
	ids, err := h.IDs.List(c.Request.Context(), identity.Filter{
		Department: c.Query("department"),
		Year:       c.Query("year"),
		Division:   c.Query("division"),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": ids, "count": len(ids)})
}

func (h *Handler) getStudent(c *gin.Context) {
	id, err := h.IDs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": id})
}

func (h *Handler) updateStudent(c *gin.Context) {
	var upd identity.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	if err := h.IDs.UpdateProfile(c.Request.Context(), c.Param("id"), upd); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteStudent(c *gin.Context) {
	found, err := h.IDs.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if !found {
		writeErr(c, fmt.Errorf("%w: identity %s", apperr.ErrNotFound, c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listAttendance(c *gin.Context) {
	entries, stats, err := h.Records.Fetch(c.Request.Context(), attendance.Query{
		Date:       c.Query("date"),
		Subject:    c.Query("subject"),
		Department: c.Query("department"),
		Year:       c.Query("year"),
		Division:   c.Query("division"),
		StudentID:  c.Query("student_id"),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	if entries == nil {
		entries = []attendance.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": entries, "stats": stats})
}
