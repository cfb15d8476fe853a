package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ayusman/footfit/internal/capture"
	"github.com/ayusman/footfit/internal/scene"
	"github.com/ayusman/footfit/internal/session"
	"github.com/ayusman/footfit/internal/store"
	"github.com/ayusman/footfit/internal/tracking"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doRequest(t *testing.T, client *http.Client, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("NewRequest error = %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	return resp
}

func TestAPI_SessionWorkflow(t *testing.T) {
	fake := newFakeSession()
	srv := New(Config{Session: fake})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Capture before entering is a conflict
	resp := doRequest(t, client, http.MethodPost, ts.URL+"/api/capture", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("POST /api/capture inactive status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// 2. Enter try-on mode
	resp = doRequest(t, client, http.MethodPost, ts.URL+"/api/session", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/session status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var snap session.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if !snap.Active {
		t.Error("snapshot after enter should be active")
	}

	// 3. Entering again is a conflict
	resp = doRequest(t, client, http.MethodPost, ts.URL+"/api/session", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second POST /api/session status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// 4. Read status
	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/session", nil)
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if snap.State != tracking.FeetLocked || snap.Message != "Positioned" {
		t.Errorf("GET /api/session = %+v, want feet_locked", snap)
	}

	// 5. Capture a composite
	resp = doRequest(t, client, http.MethodPost, ts.URL+"/api/capture", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/capture status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %s, want image/jpeg", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Equal(data, jpegStub) {
		t.Errorf("capture body = %v, want %v", data, jpegStub)
	}

	// 6. Exit
	resp = doRequest(t, client, http.MethodDelete, ts.URL+"/api/session", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE /api/session status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if snap.Active || snap.State != tracking.Searching {
		t.Errorf("snapshot after exit = %+v, want inactive searching", snap)
	}

	// 7. Exiting again is a conflict
	resp = doRequest(t, client, http.MethodDelete, ts.URL+"/api/session", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second DELETE /api/session status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()
}

func TestAPI_SessionAcquisitionError(t *testing.T) {
	fake := newFakeSession()
	fake.enterErr = capture.ErrPermissionDenied

	ts := httptest.NewServer(New(Config{Session: fake}))
	defer ts.Close()

	resp := doRequest(t, ts.Client(), http.MethodPost, ts.URL+"/api/session", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body.Error, capture.ErrPermissionDenied.Error()) {
		t.Errorf("error = %q, want the acquisition reason", body.Error)
	}
}

func TestAPI_SessionMethodNotAllowed(t *testing.T) {
	s := New(Config{Session: newFakeSession()})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/session"},
		{http.MethodGet, "/api/capture"},
		{http.MethodPost, "/api/stream"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestAPI_HistoryWorkflow(t *testing.T) {
	st := newTestStore(t)
	ts := httptest.NewServer(New(Config{Store: st}))
	defer ts.Close()
	client := ts.Client()

	// 1. Empty history lists as an empty array
	resp := doRequest(t, client, http.MethodGet, ts.URL+"/api/sessions", nil)
	var listed struct {
		Sessions []store.Session `json:"sessions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if listed.Sessions == nil || len(listed.Sessions) != 0 {
		t.Fatalf("empty history = %+v, want []", listed.Sessions)
	}

	// 2. Record a session with an event and a capture
	if err := st.Sessions().Create(&store.Session{ID: "s1", Facing: "environment"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	st.Sessions().AddStatusEvent("s1", "feet_locked", "Positioned")
	st.Captures().Create(&store.Capture{ID: "c1", SessionID: "s1", Size: 4})
	st.Sessions().End("s1", 10, 7)

	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/sessions?limit=5", nil)
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Sessions) != 1 || listed.Sessions[0].LockedFrames != 7 {
		t.Fatalf("history = %+v", listed.Sessions)
	}

	// 3. Session detail
	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/sessions/s1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/sessions/s1 status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var detail struct {
		ID       string              `json:"id"`
		Frames   int                 `json:"frames"`
		Events   []store.StatusEvent `json:"events"`
		Captures []store.Capture     `json:"captures"`
	}
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()
	if detail.ID != "s1" || detail.Frames != 10 || len(detail.Events) != 1 || len(detail.Captures) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	// 4. Bad limit
	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/sessions?limit=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	// 5. Delete and verify
	resp = doRequest(t, client, http.MethodDelete, ts.URL+"/api/sessions/s1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/sessions/s1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_DeleteActiveSessionConflicts(t *testing.T) {
	st := newTestStore(t)
	fake := newFakeSession()
	ts := httptest.NewServer(New(Config{Store: st, Session: fake}))
	defer ts.Close()
	client := ts.Client()

	// The fake reports its live session as "fake".
	if err := st.Sessions().Create(&store.Session{ID: "fake", Facing: "environment"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	fake.Enter(context.Background())

	resp := doRequest(t, client, http.MethodDelete, ts.URL+"/api/sessions/fake", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("DELETE active status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if err := st.Sessions().AddStatusEvent("fake", "feet_locked", "Positioned"); err != nil {
		t.Errorf("active session should keep recording, got %v", err)
	}

	fake.Exit()
	resp = doRequest(t, client, http.MethodDelete, ts.URL+"/api/sessions/fake", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE after exit status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestAPI_Object(t *testing.T) {
	st := newTestStore(t)
	model := scene.NewModel("sneaker", color.RGBA{R: 200, G: 40, B: 40, A: 255})
	ts := httptest.NewServer(New(Config{Store: st, Model: model}))
	defer ts.Close()
	client := ts.Client()

	var obj struct {
		Name    string `json:"name"`
		Color   string `json:"color"`
		Visible bool   `json:"visible"`
	}

	resp := doRequest(t, client, http.MethodGet, ts.URL+"/api/object", nil)
	json.NewDecoder(resp.Body).Decode(&obj)
	resp.Body.Close()
	if obj.Name != "sneaker" || obj.Color != "#c82828" || obj.Visible {
		t.Errorf("GET /api/object = %+v", obj)
	}

	resp = doRequest(t, client, http.MethodPut, ts.URL+"/api/object", strings.NewReader(`{"color":"#1e90ff"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /api/object status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	json.NewDecoder(resp.Body).Decode(&obj)
	resp.Body.Close()
	if obj.Color != "#1e90ff" {
		t.Errorf("color after PUT = %s, want #1e90ff", obj.Color)
	}

	saved, err := st.Settings().Get(store.SettingObjectColor)
	if err != nil || saved != "#1e90ff" {
		t.Errorf("persisted color = %q, %v", saved, err)
	}

	for _, body := range []string{`{"color":"blue"}`, `not json`} {
		resp = doRequest(t, client, http.MethodPut, ts.URL+"/api/object", strings.NewReader(body))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want %d", body, resp.StatusCode, http.StatusBadRequest)
		}
		resp.Body.Close()
	}
}

func TestAPI_Stream(t *testing.T) {
	fake := newFakeSession()
	fake.Enter(context.Background())

	ts := httptest.NewServer(New(Config{Session: fake}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if line != "--frame\r\n" {
		t.Errorf("first line = %q, want boundary", line)
	}
	line, _ = reader.ReadString('\n')
	if line != "Content-Type: image/jpeg\r\n" {
		t.Errorf("part header = %q", line)
	}
}

func dialStatus(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/status/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func waitForSubscribers(t *testing.T, fake *fakeSession, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for fake.subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", fake.subscribers(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPI_StatusWebSocket(t *testing.T) {
	fake := newFakeSession()
	ts := httptest.NewServer(New(Config{Session: fake}))
	defer ts.Close()

	t.Run("json text frames", func(t *testing.T) {
		conn := dialStatus(t, ts, "")

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		if msgType != websocket.TextMessage {
			t.Errorf("message type = %d, want text", msgType)
		}
		var snap session.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if snap.State != tracking.Searching {
			t.Errorf("initial state = %s, want searching", snap.State)
		}

		waitForSubscribers(t, fake, 1)
		fake.publish(session.Snapshot{Active: true, State: tracking.FeetPartial, Message: tracking.MessageFeetPartial})

		_, data, err = conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		json.Unmarshal(data, &snap)
		if snap.State != tracking.FeetPartial || !snap.Active {
			t.Errorf("pushed snapshot = %+v", snap)
		}
	})

	t.Run("msgpack binary frames", func(t *testing.T) {
		conn := dialStatus(t, ts, "?format=msgpack")

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		if msgType != websocket.BinaryMessage {
			t.Errorf("message type = %d, want binary", msgType)
		}
		var snap session.Snapshot
		if err := msgpack.Unmarshal(data, &snap); err != nil {
			t.Fatalf("msgpack unmarshal error = %v", err)
		}
		if snap.Message != tracking.MessageSearching {
			t.Errorf("message = %q, want %q", snap.Message, tracking.MessageSearching)
		}
	})
}

func TestAPI_StatusWebSocketUnsubscribes(t *testing.T) {
	fake := newFakeSession()
	ts := httptest.NewServer(New(Config{Session: fake}))
	defer ts.Close()

	conn := dialStatus(t, ts, "")
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	waitForSubscribers(t, fake, 1)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for fake.subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler did not unsubscribe after the client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
