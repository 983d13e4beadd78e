package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

type PushController struct {
	store *store.Store
	cfg   config.PushConfig
}

func NewPushController(st *store.Store, cfg config.PushConfig) *PushController {
	return &PushController{store: st, cfg: cfg}
}

type subscriptionKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type subscribeInput struct {
	Subscription *struct {
		Endpoint string            `json:"endpoint"`
		Keys     *subscriptionKeys `json:"keys"`
	} `json:"subscription"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

// Subscribe handles POST /api/push/subscribe. A repeated (user, endpoint)
// pair overwrites the keys and reactivates the row.
func (pc *PushController) Subscribe(c *gin.Context) {
	var in subscribeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription format"})
		return
	}
	sub := in.Subscription
	if sub == nil || strings.TrimSpace(sub.Endpoint) == "" || sub.Keys == nil ||
		sub.Keys.P256DH == "" || sub.Keys.Auth == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription format"})
		return
	}
	if strings.TrimSpace(in.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}
	userType, ok := userTypeOrDefault(in.UserType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User type must be student or driver"})
		return
	}

	row := &models.PushSubscription{
		UserID:   strings.TrimSpace(in.UserID),
		UserType: userType,
		Endpoint: strings.TrimSpace(sub.Endpoint),
		P256DH:   sub.Keys.P256DH,
		Auth:     sub.Keys.Auth,
		IsActive: true,
	}
	if err := pc.store.Push.Upsert(c.Request.Context(), row); err != nil {
		respondServerError(c, err, "Failed to save subscription")
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": row.UserID, "user_type": row.UserType}).Info("Push subscription saved")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription saved"})
}

// Unsubscribe handles DELETE /api/push/subscribe?userId&endpoint. Without
// an endpoint every subscription of the user is deactivated.
func (pc *PushController) Unsubscribe(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}
	n, err := pc.store.Push.Deactivate(c.Request.Context(), userID, strings.TrimSpace(c.Query("endpoint")))
	if err != nil {
		respondServerError(c, err, "Failed to remove subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription removed", "deactivated": n})
}

// VAPIDPublicKey handles GET /api/push/vapid-public-key.
func (pc *PushController) VAPIDPublicKey(c *gin.Context) {
	if pc.cfg.VAPIDPublicKey == "" {
		respondConfigError(c, "VAPID_PUBLIC_KEY")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "publicKey": pc.cfg.VAPIDPublicKey})
}
