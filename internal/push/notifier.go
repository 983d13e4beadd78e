package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	webpush "github.com/SherClockHolmes/webpush-go"
	logrus "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bus_portal/internal/config"
	"bus_portal/internal/metrics"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// sendLimit bounds concurrent deliveries per notification.
const sendLimit = 8

type sendFunc func(ctx context.Context, msg []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// Payload is the JSON the service worker receives.
type Payload struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Result summarises one fan-out.
type Result struct {
	Sent        int64 `json:"sent"`
	Failed      int64 `json:"failed"`
	Deactivated int64 `json:"deactivated"`
	Skipped     bool  `json:"skipped,omitempty"`
}

// Notifier delivers notifications to stored browser subscriptions.
type Notifier struct {
	subs store.PushStore
	cfg  config.PushConfig
	send sendFunc
}

func NewNotifier(subs store.PushStore, cfg config.PushConfig) *Notifier {
	return &Notifier{subs: subs, cfg: cfg, send: webpush.SendNotificationWithContext}
}

func (n *Notifier) enabled() bool {
	return n.cfg.VAPIDPublicKey != "" && n.cfg.VAPIDPrivateKey != ""
}

// Filter translates a notification's audience into a subscription filter.
func Filter(note models.Notification) store.PushFilter {
	switch note.TargetAudience {
	case models.AudienceStudents:
		return store.PushFilter{UserType: "student"}
	case models.AudienceDrivers:
		return store.PushFilter{UserType: "driver"}
	case models.AudienceSpecific:
		return store.PushFilter{UserIDs: note.SpecificUsers}
	}
	return store.PushFilter{}
}

// Notify sends note to every active subscription in its audience.
// Endpoints answering 404 or 410 are deactivated. Individual delivery
// failures are counted, not returned.
func (n *Notifier) Notify(ctx context.Context, note models.Notification) (Result, error) {
	if !n.enabled() {
		return Result{Skipped: true}, nil
	}
	if note.TargetAudience == models.AudienceSpecific && len(note.SpecificUsers) == 0 {
		return Result{}, nil
	}
	subs, err := n.subs.Active(ctx, Filter(note))
	if err != nil {
		return Result{}, err
	}
	msg, err := json.Marshal(Payload{ID: note.ID, Title: note.Title, Message: note.Message, Type: note.Type})
	if err != nil {
		return Result{}, err
	}

	var sent, failed, gone int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendLimit)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			status, err := n.deliver(gctx, msg, sub)
			switch {
			case status == http.StatusNotFound || status == http.StatusGone:
				atomic.AddInt64(&gone, 1)
				metrics.PushDeliveries.WithLabelValues("gone").Inc()
				if derr := n.subs.DeactivateEndpoint(gctx, sub.Endpoint); derr != nil {
					logrus.WithError(derr).WithField("endpoint", sub.Endpoint).Warn("Failed to deactivate expired push subscription")
				}
			case err != nil || status >= 400:
				atomic.AddInt64(&failed, 1)
				metrics.PushDeliveries.WithLabelValues("failed").Inc()
				logrus.WithError(err).WithFields(logrus.Fields{
					"user_id": sub.UserID,
					"status":  status,
				}).Warn("Push delivery failed")
			default:
				atomic.AddInt64(&sent, 1)
				metrics.PushDeliveries.WithLabelValues("sent").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	return Result{Sent: sent, Failed: failed, Deactivated: gone}, nil
}

func (n *Notifier) deliver(ctx context.Context, msg []byte, sub models.PushSubscription) (int, error) {
	resp, err := n.send(ctx, msg, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Auth, P256dh: sub.P256DH},
	}, &webpush.Options{
		Subscriber:      n.cfg.Subject,
		VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
		TTL:             3600,
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}
