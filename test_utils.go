package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// TestLogger wraps AppLogger for test use with testing.T integration
type TestLogger struct {
	*AppLogger
	t *testing.T
}

// NewTestLogger creates a test logger from environment variables
func NewTestLogger(t *testing.T) *TestLogger {
	al := &AppLogger{
		outputDir:   os.Getenv("TEST_OUTPUT_DIR"),
		logRequests: os.Getenv("TEST_LOG_REQUESTS") == "1",
		logDB:       os.Getenv("TEST_LOG_DB") == "1",
		logWS:       os.Getenv("TEST_LOG_WS") == "1",
		debug:       os.Getenv("TEST_DEBUG") == "1",
	}

	if al.logRequests {
		if path := os.Getenv("TEST_REQUEST_LOG"); path != "" {
			f, err := os.OpenFile(path+"_"+t.Name(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				al.requestLog = f
			}
		}
	}
	if al.logDB {
		if path := os.Getenv("TEST_DB_LOG"); path != "" {
			f, err := os.OpenFile(path+"_"+t.Name(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				al.dbLog = f
			}
		}
	}
	if al.logWS {
		if path := os.Getenv("TEST_WS_LOG"); path != "" {
			f, err := os.OpenFile(path+"_"+t.Name(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				al.wsLog = f
			}
		}
	}

	return &TestLogger{AppLogger: al, t: t}
}

// Debug logs a debug message using testing.T.Logf
func (tl *TestLogger) Debug(format string, args ...any) {
	if !tl.debug {
		return
	}
	tl.t.Logf("[DEBUG] "+format, args...)
}

// TestContext holds test infrastructure: an isolated database, hub and
// HTTP server, plus a cookie-carrying client.
type TestContext struct {
	t       *testing.T
	logger  *TestLogger
	baseURL string
	client  *http.Client
	db      *sqlx.DB
	hub     *Hub
	dbPath  string
}

// newTestContext spins up a server over a fresh SQLite file. Handlers
// read the package globals, so tests using this must not run in
// parallel.
func newTestContext(t *testing.T) *TestContext {
	logger := NewTestLogger(t)

	dbPath := fmt.Sprintf("%s/godsbooklet_test_%s_%d.db",
		t.TempDir(),
		strings.ReplaceAll(t.Name(), "/", "_"),
		time.Now().UnixNano())

	testDB, dbErr := sqlx.Connect("sqlite3",
		fmt.Sprintf("file:%s?_busy_timeout=5000&_synchronous=NORMAL&_txlock=deferred", dbPath))
	if dbErr != nil {
		t.Fatalf("Failed to connect to test database: %v", dbErr)
	}

	// Disable AI storyteller in tests by default (individual tests may override)
	globalStoryteller = nil

	db = testDB
	if err := initDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	logger.LogDB("after initDB")

	testTemplates, tmplErr := template.New("").ParseFS(templateFS, "templates/*.html")
	if tmplErr != nil {
		t.Fatalf("Failed to parse templates: %v", tmplErr)
	}
	templates = testTemplates

	testHub := newHub()
	go testHub.run()
	hub = testHub

	server := httptest.NewServer(newMux(logger.AppLogger))

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			logger.LogDB("before cleanup")
			server.Close()
			testHub.stop()
			testDB.Close()
			logger.Close()
		})
	}
	t.Cleanup(cleanup)

	return &TestContext{
		t:       t,
		logger:  logger,
		baseURL: server.URL,
		client:  client,
		db:      testDB,
		hub:     testHub,
		dbPath:  dbPath,
	}
}

// doJSON sends a JSON request through the cookie-carrying client and
// decodes the response body into out (when out is non-nil).
func (tc *TestContext) doJSON(method, path string, body any, out any) *http.Response {
	tc.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			tc.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		tc.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			tc.t.Fatalf("%s %s: decode response %q: %v", method, path, data, err)
		}
	}
	return resp
}

// signup creates a moderator account and leaves its session cookie in
// the client jar.
func (tc *TestContext) signup(name string) authResponse {
	tc.t.Helper()
	var out authResponse
	resp := tc.doJSON("POST", "/signup", authRequest{Name: name}, &out)
	if resp.StatusCode != http.StatusCreated {
		tc.t.Fatalf("signup %s: status %d", name, resp.StatusCode)
	}
	return out
}

// createRoom creates a room and returns its view.
func (tc *TestContext) createRoom(req createRoomRequest) roomView {
	tc.t.Helper()
	var out roomView
	resp := tc.doJSON("POST", "/rooms", req, &out)
	if resp.StatusCode != http.StatusCreated {
		tc.t.Fatalf("create room: status %d", resp.StatusCode)
	}
	return out
}
