package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/testutil"
)

// fakeService stands in for the chat service
type fakeService struct {
	mu        sync.Mutex
	chats     int
	deletes   []string
	checkouts []map[string]string
	plans     []string
	token     string
	remote    []any // conversations the service has stored
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	user := map[string]any{"id": "u1", "email": "ada@example.com", "plan": "PRO", "name": "Ada"}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.chats++
		if r.Header.Get("Authorization") != "" && len(f.remote) == 0 {
			f.remote = append(f.remote, map[string]any{
				"id":        "srv-1",
				"createdAt": 1767225600000,
				"messages": []map[string]any{
					{"role": "user", "content": body.Message, "timestamp": 1767225600000},
					{"role": "assistant", "content": "Hi there!", "aiUsed": "OpenAI", "timestamp": 1767225601000},
				},
			})
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{
			"response":       "Hi there!",
			"aiUsed":         "OpenAI",
			"providerKey":    "openai",
			"conversationId": "srv-1",
		})
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"token": f.token, "user": user})
	})
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{"error": "invalid token"})
			return
		}
		writeJSON(w, map[string]any{"user": user})
	})
	mux.HandleFunc("/api/auth/update-plan", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.plans = append(f.plans, body["plan"])
		f.mu.Unlock()
		updated := map[string]any{"id": "u1", "email": "ada@example.com", "plan": body["plan"], "isPaid": true}
		writeJSON(w, map[string]any{"token": f.token, "user": updated})
	})
	mux.HandleFunc("/api/auth/conversations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, append([]any{}, f.remote...))
	})
	mux.HandleFunc("/api/auth/conversations/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deletes = append(f.deletes, strings.TrimPrefix(r.URL.Path, "/api/auth/conversations/"))
		f.remote = nil
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/stripe/checkout", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.checkouts = append(f.checkouts, body)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"sessionUrl": "https://checkout.example/cs_1"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeService) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats
}

type testEnv struct {
	t       *testing.T
	dir     string
	dbPath  string
	apiURL  string
	service *fakeService
	stdin   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	t.Setenv("HOME", dir)
	for _, key := range []string{"SYNAPSE_API_URL", "SYNAPSE_STORAGE_BACKEND", "SYNAPSE_STORAGE_PATH", "SYNAPSE_REVEAL_STRIDE"} {
		t.Setenv(key, "")
	}

	svc := &fakeService{token: testutil.MakeToken(t, "u1", time.Now().Add(time.Hour))}
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)

	return &testEnv{
		t:       t,
		dir:     dir,
		dbPath:  filepath.Join(dir, "data", "synapse.db"),
		apiURL:  srv.URL,
		service: svc,
	}
}

// run executes the CLI with the environment's storage and service
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	base := []string{
		"--storage", e.dbPath,
		"--api-url", e.apiURL,
		"--config", filepath.Join(e.dir, "absent.yaml"),
	}
	rootCmd.SetArgs(append(base, args...))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(e.stdin))
	e.stdin = ""

	err := rootCmd.Execute()
	return stdout.String(), err
}

// mustRun fails the test when the command errors
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

// setGuestCount seeds the guest request counter of the environment's device
func (e *testEnv) setGuestCount(n int) {
	e.t.Helper()
	store, err := internal.NewStore(internal.BackendSQLite, e.dbPath)
	if err != nil {
		e.t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	p := internal.NewPersistence(store)
	if err := p.Save(internal.DeviceScope(internal.FeatureGuestCount, internal.DeviceID(p)), n); err != nil {
		e.t.Fatalf("Failed to seed guest count: %v", err)
	}
}

func resetFlags() {
	verbose, storagePath, backendName, apiURL, configPath = false, "", "", "", ""
	chatConversation, chatImage, searchWeb = "", "", false
	askConversation, askImage = "", ""
	showLimit = 0
	format, outputDir, conversationID = "jsonl", "./exports", ""
	authEmail, authPassword, authName = "", "", ""
	quotaReset = false
	upgradeEmail, upgradeActivate = "", false
	healthcheckDetails, serveAddr = false, ""
}
