package notify_test

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/joe/offloader/internal/notify"
)

func TestDeliversMessagesAsJSON(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var (
		mu       sync.Mutex
		received []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string

		g.Expect(json.NewDecoder(r.Body).Decode(&payload)).To(Succeed())

		mu.Lock()
		received = append(received, payload["content"])
		mu.Unlock()
	}))
	t.Cleanup(server.Close)

	webhook := notify.NewWebhook(func() string { return server.URL }, log.New(io.Discard, "", 0))
	t.Cleanup(webhook.Close)

	webhook.Notify("Transfer 25% complete")
	webhook.Notify("Transfer 50% complete")

	g.Eventually(func() []string {
		mu.Lock()
		defer mu.Unlock()

		return append([]string(nil), received...)
	}).Should(Equal([]string{"Transfer 25% complete", "Transfer 50% complete"}))
}

func TestEmptyURLIsNoOp(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	webhook := notify.NewWebhook(func() string { return "" }, log.New(io.Discard, "", 0))
	t.Cleanup(webhook.Close)

	g.Expect(func() { webhook.Notify("dropped silently") }).NotTo(Panic())
}

func TestDeliveryErrorsAreSwallowed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	webhook := notify.NewWebhook(func() string { return server.URL }, log.New(io.Discard, "", 0))
	t.Cleanup(webhook.Close)

	g.Expect(func() {
		for range 5 {
			webhook.Notify("failing message")
		}
	}).NotTo(Panic())
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(block) })

	webhook := notify.NewWebhook(func() string { return server.URL }, log.New(io.Discard, "", 0))
	t.Cleanup(webhook.Close)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range notify.QueueSize * 3 {
			webhook.Notify("flood")
		}
	}()

	g.Eventually(done).Should(BeClosed())
}
