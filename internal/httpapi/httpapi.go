// Package httpapi exposes the engine over HTTP: recognition, session
// lifecycle, enrollment, attendance queries and account auth.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"faceattend/internal/apperr"
	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/identity"
	"faceattend/internal/pipeline"
	"faceattend/internal/session"
)

// Handler bundles the services behind the routes.
type Handler struct {
	Pipe     *pipeline.Service
	IDs      *identity.Service
	Sessions *session.Manager
	Records  *attendance.Repository
	Users    *auth.Users
	Signer   auth.Signer

	// Health probes; either may be nil.
	DBHealthy    func(ctx context.Context) bool
	RedisHealthy func(ctx context.Context) bool
	FaceHealthy  func(ctx context.Context) error
}

// Register mounts every route on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	api := r.Group("/api")
	{
		// Kiosk-facing: the camera client runs unauthenticated.
		api.POST("/demo/recognize", h.demoRecognize)
		api.POST("/attendance/real-mark", h.realMark)

		api.GET("/attendance", h.listAttendance)
		api.GET("/students", h.listStudents)
		api.GET("/students/:id", h.getStudent)

		api.POST("/signup", h.signup)
		api.POST("/signin", h.signin)

		// Session lifecycle, enrollment and profile mutation need a
		// teacher token.
		guarded := api.Group("", auth.RequireRole(h.Signer, "teacher"))
		guarded.POST("/attendance/create_session", h.createSession)
		guarded.POST("/attendance/end_session", h.endSession)
		guarded.POST("/register-student", h.register(identity.RoleStudent))
		guarded.POST("/register-teacher", h.register(identity.RoleTeacher))
		guarded.PUT("/students/:id", h.updateStudent)
		guarded.DELETE("/students/:id", h.deleteStudent)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbOK := h.DBHealthy == nil || h.DBHealthy(ctx)
	redisOK := h.RedisHealthy == nil || h.RedisHealthy(ctx)
	faceOK := true
	if h.FaceHealthy != nil {
		faceOK = h.FaceHealthy(ctx) == nil
	}

	status := http.StatusOK
	if !dbOK || !faceOK {
		// Redis is a fast path, not a dependency.
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbOK, "redis": redisOK, "face": faceOK})
}

// writeErr maps the error taxonomy onto HTTP statuses with one
// response shape.
func writeErr(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
}
