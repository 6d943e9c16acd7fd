package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeDaemon points daemonAddr at a test server for the duration of a test.
func fakeDaemon(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	prev := daemonAddr
	daemonAddr = srv.URL
	t.Cleanup(func() {
		daemonAddr = prev
		srv.Close()
	})
}

func TestCall_DecodesReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/profile", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"name": body["name"]})
	})
	fakeDaemon(t, mux)

	var out struct {
		Name string `json:"name"`
	}
	if err := call(http.MethodPost, "/v1/profile", map[string]string{"name": "Ada"}, &out); err != nil {
		t.Fatalf("call() error = %v", err)
	}
	if out.Name != "Ada" {
		t.Errorf("name = %q, want Ada", out.Name)
	}
}

func TestCall_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "json error body",
			status:     http.StatusConflict,
			body:       `{"error":"tab busy","status":409,"details":"check in flight"}`,
			wantStatus: http.StatusConflict,
			wantMsg:    "tab busy: check in flight",
		},
		{
			name:       "plain body",
			status:     http.StatusBadGateway,
			body:       "upstream down",
			wantStatus: http.StatusBadGateway,
			wantMsg:    "502 Bad Gateway",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			err := call(http.MethodGet, "/v1/anything", nil, nil)
			if err == nil {
				t.Fatal("call() error = nil")
			}
			if got := statusOf(err); got != tt.wantStatus {
				t.Errorf("statusOf() = %d, want %d", got, tt.wantStatus)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCall_DaemonDown(t *testing.T) {
	prev := daemonAddr
	daemonAddr = "http://127.0.0.1:1"
	t.Cleanup(func() { daemonAddr = prev })

	if err := call(http.MethodGet, "/v1/status", nil, nil); err != errDaemonDown {
		t.Errorf("call() error = %v, want errDaemonDown", err)
	}
	if isRunning() {
		t.Error("isRunning() = true with nothing listening")
	}
}

func TestIsRunning(t *testing.T) {
	fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	if !isRunning() {
		t.Error("isRunning() = false")
	}
}

func TestCmdWhoami_NotRegistered(t *testing.T) {
	fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"learner not registered","status":404}`))
	}))
	if err := cmdWhoami(); err != nil {
		t.Errorf("cmdWhoami() error = %v, want nil for unregistered learner", err)
	}
}

func TestCmdTopic_NotFound(t *testing.T) {
	fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"topic not found","status":404}`))
	}))
	err := cmdTopics([]string{"nope"})
	if err == nil || !strings.Contains(err.Error(), "topic not found: nope") {
		t.Errorf("cmdTopics() error = %v", err)
	}
}

func TestCmdExerciseInfo_Unknown(t *testing.T) {
	fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"exercises":[{"id":"ex1","title":"Sum","difficulty":"Easy"}]}`))
	}))
	if err := cmdExerciseInfo("ex1"); err != nil {
		t.Errorf("cmdExerciseInfo(ex1) error = %v", err)
	}
	if err := cmdExerciseInfo("ex9"); err == nil {
		t.Error("cmdExerciseInfo(ex9) error = nil")
	}
}

func TestCmdActivity_InvalidLimit(t *testing.T) {
	for _, arg := range []string{"0", "-3", "ten"} {
		if err := cmdActivity([]string{arg}); err == nil {
			t.Errorf("cmdActivity(%q) error = nil", arg)
		}
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"len"}, "?q=len"},
		{[]string{"data", "science"}, "?q=data+science"},
	}
	for _, tt := range tests {
		if got := query(tt.args); got != tt.want {
			t.Errorf("query(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestDispatch_Unknown(t *testing.T) {
	if err := dispatch("frobnicate", nil); err == nil {
		t.Error("dispatch() error = nil for unknown command")
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.pid")
	if err := os.WriteFile(good, []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if pid, err := readPID(good); err != nil || pid != 4242 {
		t.Errorf("readPID() = %d, %v; want 4242", pid, err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(bad); err == nil {
		t.Error("readPID() error = nil for garbage")
	}

	if _, err := readPID(filepath.Join(dir, "missing.pid")); err == nil {
		t.Error("readPID() error = nil for missing file")
	}
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pymasterd.log")
	var content strings.Builder
	for content.Len() < 2*tailBytes {
		content.WriteString(`{"msg":"line"}` + "\n")
	}
	content.WriteString(`{"msg":"last"}` + "\n")
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := tail(f, &out); err != nil {
		t.Fatalf("tail() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[len(lines)-1] != `{"msg":"last"}` {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "{") {
			t.Errorf("partial line in output: %q", line)
		}
	}
	if out.Len() > tailBytes {
		t.Errorf("tail wrote %d bytes, want <= %d", out.Len(), tailBytes)
	}
}

func TestPrintBackends(t *testing.T) {
	tests := []struct {
		name   string
		health map[string]string
		wantOK bool
		want   []string
	}{
		{"none", nil, true, nil},
		{"all up", map[string]string{"redis": "ok", "postgres": "ok"}, true, []string{"  postgres: ✓ reachable", "  redis: ✓ reachable"}},
		{"one down", map[string]string{"redis": "dial tcp: connection refused", "sqlite": "ok"}, false, []string{"  redis: ✗ dial tcp: connection refused", "  sqlite: ✓ reachable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := printBackends(&out, tt.health); got != tt.wantOK {
				t.Errorf("printBackends() = %t, want %t", got, tt.wantOK)
			}
			var lines []string
			if s := strings.TrimRight(out.String(), "\n"); s != "" {
				lines = strings.Split(s, "\n")
			}
			if strings.Join(lines, "|") != strings.Join(tt.want, "|") {
				t.Errorf("output = %q, want %q", lines, tt.want)
			}
		})
	}
}
