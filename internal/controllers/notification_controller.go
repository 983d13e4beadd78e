package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bus_portal/internal/metrics"
	"bus_portal/internal/models"
	"bus_portal/internal/push"
	"bus_portal/internal/store"
)

// markReadLimit bounds concurrent updates in mark-all-read.
const markReadLimit = 8

// Notifier delivers a stored notification to its audience.
type Notifier interface {
	Notify(ctx context.Context, note models.Notification) (push.Result, error)
}

type NotificationController struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time
}

func NewNotificationController(st *store.Store, notifier Notifier) *NotificationController {
	return &NotificationController{store: st, notifier: notifier, now: time.Now}
}

type notificationView struct {
	models.Notification
	IsRead bool `json:"is_read"`
}

func userTypeOrDefault(raw string) (string, bool) {
	switch strings.TrimSpace(raw) {
	case "", "student":
		return "student", true
	case "driver":
		return "driver", true
	}
	return "", false
}

// ListNotifications handles GET /api/notifications?userId&userType.
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}
	userType, ok := userTypeOrDefault(c.Query("userType"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User type must be student or driver"})
		return
	}

	notes, err := nc.store.Notifications.Visible(c.Request.Context(), userID, userType, nc.now())
	if err != nil {
		respondServerError(c, err, "Failed to fetch notifications")
		return
	}
	views := make([]notificationView, 0, len(notes))
	unread := 0
	for _, n := range notes {
		read := n.ReadByUser(userID)
		if !read {
			unread++
		}
		views = append(views, notificationView{Notification: n, IsRead: read})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": views, "unreadCount": unread})
}

type markReadInput struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

// MarkRead handles PUT /api/notifications/:id/read. Marking twice leaves a
// single entry in read_by.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var in markReadInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}
	userID := strings.TrimSpace(in.UserID)

	ctx := c.Request.Context()
	note, err := nc.store.Notifications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch notification")
		return
	}
	if note.ReadByUser(userID) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already marked as read"})
		return
	}

	added, err := nc.store.Notifications.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		respondServerError(c, err, "Failed to mark notification as read")
		return
	}
	msg := "Notification marked as read"
	if added {
		metrics.NotificationsRead.WithLabelValues("single").Inc()
	} else {
		msg = "Already marked as read"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// MarkAllRead handles PUT /api/notifications/mark-all-read. Updates run
// concurrently; any failure is reported with the counts, successful
// updates are kept.
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	var in markReadInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}
	userType, ok := userTypeOrDefault(in.UserType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User type must be student or driver"})
		return
	}
	userID := strings.TrimSpace(in.UserID)

	ctx := c.Request.Context()
	notes, err := nc.store.Notifications.Visible(ctx, userID, userType, nc.now())
	if err != nil {
		respondServerError(c, err, "Failed to fetch notifications")
		return
	}

	unread := make([]string, 0, len(notes))
	for _, n := range notes {
		if !n.ReadByUser(userID) {
			unread = append(unread, n.ID)
		}
	}
	if len(unread) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No unread notifications", "updatedCount": 0})
		return
	}

	var updated, failed int64
	var g errgroup.Group
	g.SetLimit(markReadLimit)
	for _, id := range unread {
		id := id
		g.Go(func() error {
			added, err := nc.store.Notifications.MarkRead(ctx, id, userID)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return err
			}
			// a concurrent request may have added the user first
			if added {
				atomic.AddInt64(&updated, 1)
				metrics.NotificationsRead.WithLabelValues("bulk").Inc()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"failed":  failed,
			"updated": updated,
		}).Error("Some notifications could not be marked as read")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "Failed to mark some notifications as read",
			"failedCount":  failed,
			"updatedCount": updated,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "All notifications marked as read",
		"updatedCount": updated,
	})
}

type createNotificationInput struct {
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           string     `json:"type"`
	TargetAudience string     `json:"targetAudience"`
	SpecificUsers  []string   `json:"specificUsers"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	CreatedBy      string     `json:"createdBy"`
}

// CreateNotification handles POST /api/admin/notifications: stores the
// notification and delivers it by web push.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	var in createNotificationInput
	if err := c.ShouldBindJSON(&in); err != nil ||
		strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and message are required"})
		return
	}
	audience := strings.TrimSpace(in.TargetAudience)
	if audience == "" {
		audience = models.AudienceAll
	}
	switch audience {
	case models.AudienceAll, models.AudienceStudents, models.AudienceDrivers:
	case models.AudienceSpecific:
		if len(in.SpecificUsers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Specific users are required for a targeted notification"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target audience"})
		return
	}
	kind := strings.TrimSpace(in.Type)
	if kind == "" {
		kind = "info"
	}
	createdBy := strings.TrimSpace(in.CreatedBy)
	if createdBy == "" {
		createdBy = "admin"
	}

	note := &models.Notification{
		Title:          strings.TrimSpace(in.Title),
		Message:        strings.TrimSpace(in.Message),
		Type:           kind,
		TargetAudience: audience,
		SpecificUsers:  in.SpecificUsers,
		ReadBy:         []string{},
		IsActive:       true,
		ExpiresAt:      in.ExpiresAt,
		CreatedBy:      createdBy,
	}
	ctx := c.Request.Context()
	if err := nc.store.Notifications.Create(ctx, note); err != nil {
		respondServerError(c, err, "Failed to create notification")
		return
	}

	result, err := nc.notifier.Notify(ctx, *note)
	if err != nil {
		logrus.WithError(err).WithField("notification_id", note.ID).Error("Push delivery could not start")
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "notification": note, "push": result})
}
