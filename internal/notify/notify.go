// Package notify delivers milestone messages to a webhook. Delivery is
// best-effort: a bounded queue feeds a single worker, and when the queue is
// full or the endpoint misbehaves the message is dropped and logged rather
// than slowing the transfer.
package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// Exported constants.
const (
	// QueueSize bounds the number of undelivered messages held.
	QueueSize = 16
	// RequestTimeout bounds a single webhook delivery.
	RequestTimeout = 10 * time.Second
)

// Webhook posts messages as JSON to a configured URL. An empty URL disables
// delivery without disabling callers.
type Webhook struct {
	urlFn  func() string
	client *http.Client
	logger *log.Logger

	queue     chan string
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebhook creates a webhook notifier and starts its delivery worker. The
// URL is re-read per message so configuration changes apply immediately.
func NewWebhook(urlFn func() string, logger *log.Logger) *Webhook {
	w := &Webhook{
		urlFn:  urlFn,
		client: &http.Client{Timeout: RequestTimeout},
		logger: logger,
		queue:  make(chan string, QueueSize),
		done:   make(chan struct{}),
	}

	go w.deliverLoop()

	return w
}

// Notify enqueues a message for delivery. It never blocks; with a full queue
// the message is dropped.
func (w *Webhook) Notify(message string) {
	select {
	case w.queue <- message:
	default:
		w.logger.Printf("notification queue full, dropping: %s", message)
	}
}

// Close stops the delivery worker. Queued messages are abandoned.
func (w *Webhook) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}

func (w *Webhook) deliverLoop() {
	for {
		select {
		case <-w.done:
			return
		case message := <-w.queue:
			w.deliver(message)
		}
	}
}

func (w *Webhook) deliver(message string) {
	url := w.urlFn()
	if url == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		w.logger.Printf("failed to encode notification: %v", err)

		return
	}

	resp, err := w.client.Post(url, "application/json", bytes.NewReader(payload)) //nolint:noctx // Worker-scoped client with its own timeout.
	if err != nil {
		w.logger.Printf("notification delivery failed: %v", err)

		return
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		w.logger.Printf("notification rejected: %s", resp.Status)
	}
}
