// Adapters that carry engine actions to a chat system.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/event"

	"github.com/RussellLuo/slidingwindow"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

var ErrRoomLimited = errors.New("room send limit reached")

const DefaultRoomLimit = 20

type WebhookConfig struct {
	// Bridge base URL, eg "http://localhost:8081"
	BaseURL string
	// Sent as a bearer token when set
	Token string
	// Actions per second across all rooms. Zero disables the limit.
	SendRate float64
	// Actions per room per minute. Zero disables the limit.
	RoomLimit int64
	Timeout   time.Duration
	// Retries for admin roster reads. Actions are never retried.
	RosterRetries int
}

// Talks to an HTTP chat bridge: actions are POSTed to {base}/actions, admin rosters are read from
// {base}/rooms/{room}/admins.
type Webhook struct {
	baseURL      string
	token        string
	client       *http.Client
	rosterClient *http.Client
	limiter      *rate.Limiter
	roomLimit    int64
	rooms        *xsync.MapOf[string, *slidingwindow.Limiter]
	logger       *slog.Logger
}

var (
	_ engine.Transport = (*Webhook)(nil)
	_ engine.Roster    = (*Webhook)(nil)
)

func NewWebhook(cfg WebhookConfig, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webhook")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cleanhttp.DefaultPooledClient()
	client.Transport = otelhttp.NewTransport(client.Transport)
	client.Timeout = timeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(cleanhttp.DefaultPooledTransport())
	retryClient.RetryMax = cfg.RosterRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	rosterClient := retryClient.StandardClient()
	rosterClient.Timeout = timeout

	w := &Webhook{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		token:        cfg.Token,
		client:       client,
		rosterClient: rosterClient,
		roomLimit:    cfg.RoomLimit,
		rooms:        xsync.NewMapOf[string, *slidingwindow.Limiter](),
		logger:       logger,
	}
	if cfg.SendRate > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), 1)
	}
	return w
}

func windowFunc() (slidingwindow.Window, slidingwindow.StopFunc) {
	return slidingwindow.NewLocalWindow()
}

// Deletes and mutes always pass: dropping them would leave moderation undone.
func (w *Webhook) allow(a engine.Action) bool {
	if w.roomLimit <= 0 {
		return true
	}
	switch a.Kind() {
	case engine.KindDeleteMessage, engine.KindMuteUser:
		return true
	}
	lim, _ := w.rooms.LoadOrCompute(a.RoomID(), func() *slidingwindow.Limiter {
		l, _ := slidingwindow.NewLimiter(time.Minute, w.roomLimit, windowFunc)
		return l
	})
	return lim.Allow()
}

type actionBody struct {
	Type   string        `json:"type"`
	Action engine.Action `json:"action"`
}

func (w *Webhook) Execute(ctx context.Context, a engine.Action) error {
	if !w.allow(a) {
		droppedActions.WithLabelValues(a.Kind()).Inc()
		return fmt.Errorf("%w: %s", ErrRoomLimited, a.RoomID())
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	body, err := json.Marshal(actionBody{Type: a.Kind(), Action: a})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/actions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.do(w.client, req, "action")
	if err != nil {
		return fmt.Errorf("executing %s: %w", a.Kind(), err)
	}
	defer resp.Body.Close()
	return nil
}

func (w *Webhook) Admins(ctx context.Context, room string) ([]event.User, error) {
	u := fmt.Sprintf("%s/rooms/%s/admins", w.baseURL, url.PathEscape(room))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.do(w.rosterClient, req, "admins")
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer resp.Body.Close()

	var admins []event.User
	if err := json.NewDecoder(resp.Body).Decode(&admins); err != nil {
		return nil, fmt.Errorf("decoding admin list: %w", err)
	}
	return admins, nil
}

// Sends the request, turning non-2xx responses into errors. The caller closes the body on success.
func (w *Webhook) do(client *http.Client, req *http.Request, op string) (*http.Response, error) {
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		requestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	requestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// retry attempts are logged at WARN; only the final failure surfaces as an error to the caller
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}
