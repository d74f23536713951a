package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/academia-hn/enrollment-intake/internal/intake"
	"github.com/academia-hn/enrollment-intake/internal/middleware"
	"github.com/academia-hn/enrollment-intake/internal/models"
)

// RegisterEnrollmentRoutes registers the intake endpoint.
//
// POST /api/enrollments
//   - 200 appended, 400 rejected, 409 duplicate, 429 throttled,
//     500 write failure or misconfiguration
//   - one response per request; the service never retries
func RegisterEnrollmentRoutes(r gin.IRoutes, svc *intake.Service) {
	r.POST("/api/enrollments", func(c *gin.Context) {
		var req models.IntakeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.IntakeResponse{
				Success:   false,
				Message:   "El cuerpo de la solicitud no es válido.",
				RequestID: middleware.RequestID(c),
			})
			return
		}

		out := svc.Process(c.Request.Context(), middleware.ClientKey(c), req)

		if out.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(out.RetryAfter.Seconds())))
		}

		c.JSON(out.HTTPStatus(), models.IntakeResponse{
			Success:       out.Success(),
			Message:       out.Message,
			RequestID:     middleware.RequestID(c),
			MissingFields: out.MissingFields,
		})
	})
}
