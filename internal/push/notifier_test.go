package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"

	"bus_portal/internal/config"
	"bus_portal/internal/models"
	"bus_portal/internal/testutil"
)

var vapid = config.PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv", Subject: "mailto:ops@example.edu"}

type recorder struct {
	mu       sync.Mutex
	payloads []Payload
	status   map[string]int
}

func (r *recorder) send(_ context.Context, msg []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var p Payload
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, err
	}
	r.payloads = append(r.payloads, p)
	if opts.VAPIDPrivateKey != "priv" {
		return nil, errors.New("missing vapid key")
	}
	status, ok := r.status[sub.Endpoint]
	if !ok {
		status = http.StatusCreated
	}
	if status < 0 {
		return nil, errors.New("network unreachable")
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func subscribe(t *testing.T, mem *testutil.MemStore, userID, userType, endpoint string) {
	t.Helper()
	err := mem.Store().Push.Upsert(context.Background(), &models.PushSubscription{
		UserID: userID, UserType: userType, Endpoint: endpoint, P256DH: "pk", Auth: "auth",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestNotifySkipsWithoutKeys(t *testing.T) {
	mem := testutil.NewMemStore()
	subscribe(t, mem, "u1", "student", "https://push.example/u1")
	rec := &recorder{}
	n := NewNotifier(mem.Store().Push, config.PushConfig{VAPIDPublicKey: "pub"})
	n.send = rec.send

	res, err := n.Notify(context.Background(), models.Notification{Title: "Hi", TargetAudience: models.AudienceAll})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !res.Skipped || len(rec.payloads) != 0 {
		t.Errorf("expected a skipped delivery, got %+v with %d sends", res, len(rec.payloads))
	}
}

func TestNotifyDeactivatesGoneEndpoints(t *testing.T) {
	mem := testutil.NewMemStore()
	subscribe(t, mem, "s1", "student", "https://push.example/ok")
	subscribe(t, mem, "s2", "student", "https://push.example/gone")
	subscribe(t, mem, "s3", "student", "https://push.example/missing")
	subscribe(t, mem, "s4", "student", "https://push.example/down")
	subscribe(t, mem, "d1", "driver", "https://push.example/driver")

	rec := &recorder{status: map[string]int{
		"https://push.example/gone":    http.StatusGone,
		"https://push.example/missing": http.StatusNotFound,
		"https://push.example/down":    -1,
	}}
	n := NewNotifier(mem.Store().Push, vapid)
	n.send = rec.send

	res, err := n.Notify(context.Background(), models.Notification{
		Base: models.Base{ID: "n1"}, Title: "Delay", Message: "Bus 2 is late", Type: "warning",
		TargetAudience: models.AudienceStudents,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if res.Sent != 1 || res.Deactivated != 2 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(rec.payloads) != 4 {
		t.Errorf("sent to %d endpoints, want 4 students", len(rec.payloads))
	}
	if p := rec.payloads[0]; p.ID != "n1" || p.Title != "Delay" || p.Type != "warning" {
		t.Errorf("payload = %+v", p)
	}

	active := map[string]bool{}
	for _, s := range mem.Subscriptions() {
		active[s.Endpoint] = s.IsActive
	}
	want := map[string]bool{
		"https://push.example/ok":      true,
		"https://push.example/gone":    false,
		"https://push.example/missing": false,
		"https://push.example/down":    true,
		"https://push.example/driver":  true,
	}
	for endpoint, on := range want {
		if active[endpoint] != on {
			t.Errorf("%s active = %v, want %v", endpoint, active[endpoint], on)
		}
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		audience string
		users    []string
		userType string
		ids      int
	}{
		{models.AudienceAll, nil, "", 0},
		{models.AudienceStudents, nil, "student", 0},
		{models.AudienceDrivers, nil, "driver", 0},
		{models.AudienceSpecific, []string{"a", "b"}, "", 2},
	}
	for _, tt := range tests {
		f := Filter(models.Notification{TargetAudience: tt.audience, SpecificUsers: tt.users})
		if f.UserType != tt.userType || len(f.UserIDs) != tt.ids {
			t.Errorf("Filter(%s) = %+v", tt.audience, f)
		}
	}
}

func TestNotifySpecificWithoutUsers(t *testing.T) {
	mem := testutil.NewMemStore()
	subscribe(t, mem, "u1", "student", "https://push.example/u1")
	rec := &recorder{}
	n := NewNotifier(mem.Store().Push, vapid)
	n.send = rec.send

	res, err := n.Notify(context.Background(), models.Notification{TargetAudience: models.AudienceSpecific})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if res.Sent != 0 || len(rec.payloads) != 0 {
		t.Errorf("targeted notification without users reached %d endpoints", len(rec.payloads))
	}
}
