package server_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/joe/offloader/internal/config"
	"github.com/joe/offloader/internal/engine"
	"github.com/joe/offloader/internal/server"
)

func testState() server.State {
	return server.State{
		Snapshot: engine.Snapshot{
			Device:      &engine.Device{Path: "/dev/sda1", FSType: "exfat"},
			SourceReady: true,
			DestReady:   true,
			Transfer: engine.Transfer{
				Active:         true,
				OverallPercent: 40,
				CurrentFile:    "b.mov",
			},
		},
		Config:            config.DefaultSettings().Sanitized(),
		ConfigHasPassword: true,
	}
}

func newTestServer(t *testing.T, commands server.Commands) (*server.Server, *httptest.Server) {
	t.Helper()

	srv := server.NewServer(0, log.New(io.Discard, "", 0), testState, commands)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload)) //nolint:noctx // Test request.
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) server.APIResponse {
	t.Helper()

	var envelope server.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return envelope
}

func TestStatusReturnsFullState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, ts := newTestServer(t, server.Commands{})

	resp, err := http.Get(ts.URL + "/api/status") //nolint:noctx // Test request.
	g.Expect(err).NotTo(HaveOccurred())

	t.Cleanup(func() { _ = resp.Body.Close() })

	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))

	body, err := io.ReadAll(resp.Body)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(body)).To(ContainSubstring(`"device":"/dev/sda1"`))
	g.Expect(string(body)).To(ContainSubstring(`"config_has_password":true`))
	g.Expect(string(body)).To(ContainSubstring(`"share_password":""`))
}

func TestStartTransferPassesFileList(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var got []string

	_, ts := newTestServer(t, server.Commands{
		StartTransfer: func(files []string) error {
			got = files

			return nil
		},
	})

	resp := postJSON(t, ts.URL+"/api/transfer/start",
		server.StartTransferRequest{Files: []string{"a.mov", "b.mov"}})

	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	g.Expect(got).To(Equal([]string{"a.mov", "b.mov"}))
}

func TestStartTransferRejectionIsConflict(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, ts := newTestServer(t, server.Commands{
		StartTransfer: func([]string) error { return engine.ErrTransferActive },
	})

	resp := postJSON(t, ts.URL+"/api/transfer/start", server.StartTransferRequest{Files: []string{"a.mov"}})
	g.Expect(resp.StatusCode).To(Equal(http.StatusConflict))

	envelope := decodeResponse(t, resp)
	g.Expect(envelope.Success).To(BeFalse())
	g.Expect(envelope.Error.Code).To(Equal("transfer_rejected"))
	g.Expect(envelope.Error.Message).To(ContainSubstring("already running"))
}

func TestSaveConfigDecodesSettings(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var saved config.Settings

	_, ts := newTestServer(t, server.Commands{
		SaveSettings: func(s config.Settings) error {
			saved = s

			return nil
		},
	})

	body := config.DefaultSettings()
	body.ShareName = "footage"

	resp := postJSON(t, ts.URL+"/api/config", body)
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	g.Expect(saved.ShareName).To(Equal("footage"))
}

func TestDestinationConnectFailureIsBadGateway(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, ts := newTestServer(t, server.Commands{
		ConnectDestination: func() error { return errMountFailed },
	})

	resp := postJSON(t, ts.URL+"/api/destination/connect", nil)
	g.Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
}

var errMountFailed = &mountError{}

type mountError struct{}

func (*mountError) Error() string { return "mount error(112): Host is down" }

func TestCommandRoutesRequirePost(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, ts := newTestServer(t, server.Commands{})

	resp, err := http.Get(ts.URL + "/api/transfer/start") //nolint:noctx // Test request.
	g.Expect(err).NotTo(HaveOccurred())

	t.Cleanup(func() { _ = resp.Body.Close() })

	g.Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
}

// readSSEEvent reads one "event:"/"data:" pair from the stream.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (event, data string) {
	t.Helper()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read sse stream: %v", err)
		}

		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestSSESnapshotThenEvents(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	srv, ts := newTestServer(t, server.Commands{})

	resp, err := http.Get(ts.URL + "/api/events") //nolint:noctx // Test request.
	g.Expect(err).NotTo(HaveOccurred())

	t.Cleanup(func() { _ = resp.Body.Close() })

	reader := bufio.NewReader(resp.Body)

	// A connecting observer first gets the full state, including the
	// mid-flight transfer.
	event, data := readSSEEvent(t, reader)
	g.Expect(event).To(Equal("status"))
	g.Expect(data).To(ContainSubstring(`"overall_percent":40`))
	g.Expect(data).To(ContainSubstring(`"current_file":"b.mov"`))

	srv.Emit(engine.FileProgress{FileName: "b.mov", OverallPercent: 41})

	event, data = readSSEEvent(t, reader)
	g.Expect(event).To(Equal("file_progress"))
	g.Expect(data).To(ContainSubstring(`"overall_percent":41`))
}

func TestSSEBroadcastReachesAllClients(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	srv, ts := newTestServer(t, server.Commands{})

	events := make(chan string, 2)

	for range 2 {
		resp, err := http.Get(ts.URL + "/api/events") //nolint:noctx // Test request.
		g.Expect(err).NotTo(HaveOccurred())

		t.Cleanup(func() { _ = resp.Body.Close() })

		reader := bufio.NewReader(resp.Body)
		readSSEEvent(t, reader) // discard snapshot

		go func() {
			for {
				line, rerr := reader.ReadString('\n')
				if rerr != nil {
					return
				}

				if strings.HasPrefix(line, "event: ") {
					events <- strings.TrimSpace(strings.TrimPrefix(line, "event: "))

					return
				}
			}
		}()
	}

	srv.Emit(engine.TransferCancelled{})

	g.Expect(<-events).To(Equal("transfer_cancelled"))
	g.Expect(<-events).To(Equal("transfer_cancelled"))
}
