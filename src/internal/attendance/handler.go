package attendance

import (
	"context"
	"errors"
	"net/http"
	"time"

	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	ManualEntry(c *gin.Context)
	GetSessionRecords(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) ManualEntry(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Session ID is required",
			"message": "Please provide a valid session ID",
		})
		return
	}

	var req ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Error("Invalid manual entry request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	recorder := c.GetString("user_id")

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"identity":   req.Identity,
		"outcome":    req.Outcome,
		"recorder":   recorder,
	}).Info("ManualEntry request received")

	rec, err := h.service.ApplyManual(ctx, sessionID, req.Identity, req.Outcome, recorder, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrInvalidOutcome) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid outcome",
				"message": "Outcome must be present, late or absent",
			})
			return
		}
		logrus.WithError(err).Error("Failed to apply manual entry")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to apply manual entry",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    rec,
		"message": "Manual attendance entry recorded successfully",
	})
}

func (h *handler) GetSessionRecords(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Session ID is required",
			"message": "Please provide a valid session ID",
		})
		return
	}

	history, err := h.service.History(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to query attendance history")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve records",
			"message": err.Error(),
		})
		return
	}

	state, err := h.service.EffectiveState(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to resolve effective state")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve records",
			"message": err.Error(),
		})
		return
	}

	stats, err := h.service.SessionStats(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to compute session stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve records",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"history":        history,
			"effectiveState": state,
			"stats":          stats,
		},
		"message": "Attendance records retrieved successfully",
	})
}
