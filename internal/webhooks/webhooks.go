// Package webhooks posts move failures to HTTP endpoints.
package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/reconcile"
)

const (
	defaultTimeout     = 500 * time.Millisecond
	defaultConcurrency = 4
)

// Payload is the JSON body posted for each notification.
type Payload struct {
	BoardUUID string    `json:"board_uuid"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts every notification to a fixed set of URLs. A URL may
// contain {board_uuid}, which is replaced per notification.
type Notifier struct {
	urls    []string
	client  *http.Client
	logger  *log.Logger
	workers int
	now     func() time.Time

	inflight sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the default client (500ms timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithLogger sets where delivery failures are logged.
func WithLogger(l *log.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New returns a Notifier for the valid http(s) URLs in urls. Invalid and
// duplicate entries are dropped.
func New(urls []string, opts ...Option) *Notifier {
	n := &Notifier{
		urls:    normalizeURLs(urls),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  log.StandardLogger(),
		workers: defaultConcurrency,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// URLs returns the targets the notifier posts to.
func (n *Notifier) URLs() []string {
	return append([]string(nil), n.urls...)
}

// Notify queues note for delivery to every target and returns immediately.
// Use Wait to block until queued deliveries finish.
func (n *Notifier) Notify(note reconcile.Notification) {
	if len(n.urls) == 0 {
		return
	}
	payload := Payload{
		BoardUUID: note.BoardUUID,
		Message:   note.Message,
		Timestamp: n.now().UTC(),
	}
	if note.Err != nil {
		payload.Error = note.Err.Error()
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		n.logger.WithError(err).Warn("webhooks: failed to encode payload")
		return
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		n.deliver(note.BoardUUID, body)
	}()
}

// Wait blocks until every queued delivery has finished or timed out.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

func (n *Notifier) deliver(boardUUID string, body []byte) {
	workers := n.workers
	if len(n.urls) < workers {
		workers = len(n.urls)
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				n.send(endpoint, body)
			}
		}()
	}
	for _, raw := range n.urls {
		jobs <- strings.ReplaceAll(raw, "{board_uuid}", url.PathEscape(boardUUID))
	}
	close(jobs)
	wg.Wait()
}

func (n *Notifier) send(endpoint string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout+time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).WithField("url", endpoint).Warn("webhooks: build request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.WithError(err).WithField("url", endpoint).Warn("webhooks: request failed")
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.WithFields(log.Fields{"url": endpoint, "status": resp.StatusCode}).Warn("webhooks: endpoint rejected notification")
	}
}

// Chain returns a notifier that calls each of ns in order.
func Chain(ns ...reconcile.Notifier) reconcile.Notifier {
	return reconcile.NotifierFunc(func(note reconcile.Notification) {
		for _, n := range ns {
			n.Notify(note)
		}
	})
}

func normalizeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimRight(strings.TrimSpace(raw), "/")
		if raw == "" || !isValidWebhookURL(raw) {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
