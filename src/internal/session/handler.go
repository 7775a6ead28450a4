package session

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
	OpenSession(c *gin.Context)
	CurrentToken(c *gin.Context)
	StopSession(c *gin.Context)
	ListSessions(c *gin.Context)
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

func (h *handler) OpenSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Error("Invalid open session request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	instructorID := c.GetString("user_id")

	logrus.WithFields(logrus.Fields{
		"instructor_id": instructorID,
		"course_id":     req.CourseID,
		"slot_id":       req.SlotID,
	}).Info("OpenSession request received")

	sess, err := h.service.Open(ctx, instructorID, &req)
	if err != nil {
		h.handleOpenError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    sess,
		"message": "Attendance session opened successfully",
	})
}

func (h *handler) handleOpenError(c *gin.Context, err error) {
	logrus.WithError(err).Error("Failed to open attendance session")

	switch {
	case errors.Is(err, models.ErrScheduleConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Schedule conflict",
			"message": "A live session is already open for this slot",
		})
	case errors.Is(err, models.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid duration",
			"message": "Session duration exceeds the allowed maximum",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to open session",
			"message": err.Error(),
		})
	}
}

func (h *handler) CurrentToken(c *gin.Context) {
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

	payload, sess, err := h.service.CurrentToken(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Session not found",
				"message": "No session found with the provided ID",
			})
		case errors.Is(err, models.ErrSessionNotLive):
			c.JSON(http.StatusGone, gin.H{
				"error":   "Session is not live",
				"message": "The session has expired or been stopped",
			})
		default:
			logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to mint session token")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to mint token",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"payload":                 payload,
			"expiresAt":               sess.ExpiresAt,
			"rotationIntervalSeconds": h.config.Attendance.RotationIntervalSeconds,
		},
		"message": "Token minted successfully",
	})
}

func (h *handler) StopSession(c *gin.Context) {
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

	logrus.WithField("session_id", sessionID).Info("StopSession request received")

	if err := h.service.Stop(ctx, sessionID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Session not found",
				"message": "No session found with the provided ID",
			})
			return
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to stop session")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to stop session",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session stopped successfully",
	})
}

func (h *handler) ListSessions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	instructorID := c.GetString("user_id")

	sessions, err := h.service.List(ctx, instructorID)
	if err != nil {
		logrus.WithError(err).WithField("instructor_id", instructorID).Error("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve sessions",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sessions,
		"message": "Sessions retrieved successfully",
	})
}
