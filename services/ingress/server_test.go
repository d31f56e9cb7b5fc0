package ingress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ledswarm-go/bus"
	"ledswarm-go/protocol"
	"ledswarm-go/types"
)

type harness struct {
	b      *bus.Bus
	srv    *Server
	http   *httptest.Server
	frames *bus.Subscription
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := bus.NewBus(16)
	s := NewServer(Config{Intensity: 0.3}, b.NewConnection("ingress"))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	ts := httptest.NewServer(s.Handler())
	h := &harness{
		b:      b,
		srv:    s,
		http:   ts,
		frames: b.NewConnection("probe").Subscribe(types.TopicIngress),
	}
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return h
}

func (h *harness) nextFrame(t *testing.T) protocol.Frame {
	t.Helper()
	select {
	case m := <-h.frames.Channel():
		return m.Payload.(protocol.Frame)
	case <-time.After(time.Second):
		t.Fatal("no ingress frame published")
	}
	return protocol.Frame{}
}

func (h *harness) noFrame(t *testing.T) {
	t.Helper()
	select {
	case m := <-h.frames.Channel():
		t.Fatalf("unexpected frame %v", m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *harness) publishState(t *testing.T, st types.MeshState) {
	t.Helper()
	h.b.Publish(h.b.NewMessage(types.TopicMeshState, st, true))
	deadline := time.After(time.Second)
	for {
		if got, ok := h.srv.Snapshot(); ok && got == st {
			return
		}
		select {
		case <-deadline:
			t.Fatal("mesh state never tracked")
		case <-time.After(time.Millisecond):
		}
	}
}

func (h *harness) post(t *testing.T, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(h.http.URL+"/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	_, b, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestRootDocument(t *testing.T) {
	h := newHarness(t)
	h.publishState(t, types.MeshState{Mode: "Master", Peers: 2, Intensity: 0.5})

	resp, err := http.Get(h.http.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var doc RootDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != "0.1.0" || doc.Mode != "Master" {
		t.Fatalf("root document %+v", doc)
	}
}

func TestPostMessage(t *testing.T) {
	h := newHarness(t)

	code, body := h.post(t, `{"SetBrightness":0.75}`)
	if code != http.StatusAccepted || body != `{"ok":true}` {
		t.Fatalf("accepted: %d %q", code, body)
	}
	if f := h.nextFrame(t); f != protocol.SetBrightness(0.75) {
		t.Fatalf("forwarded %v", f)
	}

	code, _ = h.post(t, `{"StartRound":"LastOneStanding"}`)
	if code != http.StatusAccepted {
		t.Fatalf("start round: %d", code)
	}
	if f := h.nextFrame(t); f != protocol.StartRound(protocol.LastOneStanding) {
		t.Fatalf("forwarded %v", f)
	}
}

func TestPostRejects(t *testing.T) {
	h := newHarness(t)

	code, body := h.post(t, `{"SetBrightness":`)
	if code != http.StatusBadRequest || body != "JSON error" {
		t.Fatalf("bad json: %d %q", code, body)
	}

	big := `{"SetBrightness":"` + strings.Repeat("1", MaxLen) + `"}`
	code, body = h.post(t, big)
	if code != http.StatusRequestEntityTooLarge || body != "Request too big" {
		t.Fatalf("oversize: %d %q", code, body)
	}
	h.noFrame(t)
}

func TestPostAtLimitIsParsed(t *testing.T) {
	h := newHarness(t)
	// Pad with whitespace so the document is exactly MaxLen bytes.
	doc := `{"SetBrightness":0.5}`
	doc += strings.Repeat(" ", MaxLen-len(doc))
	code, _ := h.post(t, doc)
	if code != http.StatusAccepted {
		t.Fatalf("at limit: %d", code)
	}
	h.nextFrame(t)
}

func TestWebSocketGreetsAndEchoes(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)

	if g := readText(t, c); g != `{"SetBrightness":0.3}` {
		t.Fatalf("greeting %q", g)
	}

	msg := `{"SetBrightness":"0.6"}`
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	if echo := readText(t, c); echo != msg {
		t.Fatalf("echo %q", echo)
	}
	if f := h.nextFrame(t); f != protocol.SetBrightness(0.6) {
		t.Fatalf("forwarded %v", f)
	}
}

func TestWebSocketGreetsWithTrackedIntensity(t *testing.T) {
	h := newHarness(t)
	h.publishState(t, types.MeshState{Mode: "Client", Intensity: 0.8})
	c := h.dial(t)
	if g := readText(t, c); g != `{"SetBrightness":0.8}` {
		t.Fatalf("greeting %q", g)
	}
}

func TestWebSocketJSONErrorKeepsSession(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)
	readText(t, c)

	if err := c.WriteMessage(websocket.TextMessage, []byte("nope")); err != nil {
		t.Fatal(err)
	}
	if got := readText(t, c); got != "JSON error" {
		t.Fatalf("reply %q", got)
	}
	h.noFrame(t)

	msg := `{"StartRound":"LastOneStanding"}`
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	if echo := readText(t, c); echo != msg {
		t.Fatalf("echo %q", echo)
	}
}

func TestWebSocketOversizeCloses(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)
	readText(t, c)

	big := strings.Repeat("x", MaxLen+1)
	if err := c.WriteMessage(websocket.TextMessage, []byte(big)); err != nil {
		t.Fatal(err)
	}
	if got := readText(t, c); got != "Request too big" {
		t.Fatalf("reply %q", got)
	}
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Fatalf("expected close, got %v", err)
	}
	h.noFrame(t)
}
