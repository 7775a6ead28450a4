package redemption

import (
	"context"
	"net/http"
	"time"

	"campus-attendance-svc/src/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Redeem(c *gin.Context)
}

type handler struct {
	config    *config.Configuration
	validator Validator
}

func NewHandler(cfg *config.Configuration, validator Validator) Handler {
	return &handler{
		config:    cfg,
		validator: validator,
	}
}

// RedeemRequest carries the raw payload produced by the scanning surface.
// The claimant identity comes from the verified token claims, never the body.
type RedeemRequest struct {
	Payload string `json:"payload" binding:"required"`
}

func (h *handler) Redeem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Error("Invalid redeem request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	identity := c.GetString("user_id")

	result, err := h.validator.Redeem(ctx, req.Payload, identity, time.Now())
	if err != nil {
		logrus.WithError(err).WithField("identity", identity).Error("Redemption failed on storage fault")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Redemption failed",
			"message": "Temporary failure, please retry",
		})
		return
	}

	if !result.Accepted {
		c.JSON(rejectionStatus(result.Reason), gin.H{
			"success": false,
			"data":    result,
			"message": rejectionMessage(result.Reason),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"message": "Attendance marked successfully",
	})
}

func rejectionStatus(reason Reason) int {
	switch reason {
	case ReasonInvalidCode:
		return http.StatusBadRequest
	case ReasonExpired:
		return http.StatusGone
	case ReasonNotEnrolled:
		return http.StatusForbidden
	case ReasonAlreadyMarked:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func rejectionMessage(reason Reason) string {
	switch reason {
	case ReasonInvalidCode:
		return "The scanned code is not valid"
	case ReasonExpired:
		return "The scanned code has expired"
	case ReasonNotEnrolled:
		return "You are not enrolled in this course"
	case ReasonAlreadyMarked:
		return "Attendance already marked for this session"
	default:
		return "Redemption rejected"
	}
}
