package main

import (
	"compress/gzip"
	"embed"
	"flag"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed templates/*
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var templates *template.Template
var db *sqlx.DB
var devMode bool

// handleIndex serves the moderator page shell. Everything else is JSON.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	_, err := getModeratorIdFromSession(r)
	loggedIn := err == nil
	if loggedIn {
		DebugLog("handleIndex", "Page accessed by logged-in moderator")
	} else {
		DebugLog("handleIndex", "Page accessed by anonymous visitor")
	}
	templates.ExecuteTemplate(w, "index.html", loggedIn)
}

func disableCaching(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Cache-Control", "no-cache")

		next.ServeHTTP(w, r)
	})
}

// shouldCompress determines if a content type should be gzip compressed
// Compresses text-based formats but not binary formats like images
func shouldCompress(contentType string) bool {
	compressiblePrefixes := []string{
		"text/",
		"application/json",
		"application/javascript",
		"image/svg",
	}
	for _, prefix := range compressiblePrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to handle conditional gzip compression
type responseWriter struct {
	http.ResponseWriter
	gz            *gzip.Writer
	wrappedWriter http.ResponseWriter
	acceptsGzip   bool
	headerSent    bool
}

// WriteHeader checks content type and sets up compression if appropriate
func (w *responseWriter) WriteHeader(statusCode int) {
	if w.headerSent {
		return
	}
	w.headerSent = true

	contentType := w.Header().Get("Content-Type")

	// Only compress if content type is compressible and client supports gzip
	if contentType != "" && shouldCompress(contentType) && w.acceptsGzip {
		w.gz = gzip.NewWriter(w.wrappedWriter)
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

// Write writes to gzip writer if it exists, otherwise to original writer
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.headerSent {
		w.WriteHeader(http.StatusOK)
	}

	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// Flush flushes both gzip and response writer
func (w *responseWriter) Flush() {
	if w.gz != nil {
		w.gz.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Close closes the gzip writer if it exists
func (w *responseWriter) Close() error {
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}

// compress adds gzip compression to compressible responses
func compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{
			ResponseWriter: w,
			wrappedWriter:  w,
			acceptsGzip:    strings.Contains(r.Header.Get("Accept-Encoding"), "gzip"),
		}
		defer wrapped.Close()

		next.ServeHTTP(wrapped, r)
	})
}

// newMux builds the full route table. Shared by the server and tests.
func newMux(logger *AppLogger) *http.ServeMux {
	mux := http.NewServeMux()

	wrapHandler := func(pattern string, handler http.HandlerFunc) {
		var h http.Handler = handler
		h = compress(h)
		h = disableCaching(h)
		if logger != nil && logger.logRequests {
			mux.Handle(pattern, &LoggingHandler{Handler: h, Logger: logger})
		} else {
			mux.Handle(pattern, h)
		}
	}

	wrapHandler("GET /{$}", handleIndex)
	wrapHandler("POST /signup", handleSignup)
	wrapHandler("POST /login", handleLogin)
	wrapHandler("POST /logout", handleLogout)

	wrapHandler("POST /rooms", handleCreateRoom)
	wrapHandler("GET /rooms/{id}", handleGetRoom)
	wrapHandler("POST /rooms/{id}/players", handleAddPlayers)
	wrapHandler("PATCH /rooms/{id}/players/{seat}", handlePatchPlayer)
	wrapHandler("DELETE /rooms/{id}/players/{seat}", handleDeletePlayer)
	wrapHandler("POST /rooms/{id}/lock", handleLockRoom)
	wrapHandler("POST /rooms/{id}/assign", handleAssign)
	wrapHandler("POST /rooms/{id}/act", handleAct)
	wrapHandler("POST /rooms/{id}/night", handleNight)
	wrapHandler("POST /rooms/{id}/advance", handleAdvance)
	wrapHandler("POST /rooms/{id}/undo", handleUndo)
	wrapHandler("GET /rooms/{id}/winner", handleWinner)
	wrapHandler("GET /roles", handleListRoles)

	// WebSocket upgrade bypasses compression and recording
	mux.HandleFunc("GET /ws", handleWebSocket)

	// Serve static files with compression for text-based files (CSS, JS, SVG)
	mux.Handle("/static/", compress(http.FileServer(http.FS(staticFS))))

	return mux
}

func main() {
	fv := registerFlags()
	flag.Parse()
	cfg := loadConfig(*fv.configPath)
	fv.applyTo(&cfg)
	devMode = cfg.Dev

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("godsbooklet.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	logger, err := NewAppLogger(cfg.toLogConfig())
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	appLogger = logger
	defer CloseAppLogger()

	if appLogger.IsEnabled() {
		log.Println("Extended logging enabled")
	}

	db, err = sqlx.Connect("sqlite3", cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := initDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	LogDBState("after initDB")

	templates, err = template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}

	initStoryteller(cfg)

	// Start WebSocket hub
	go hub.run()

	mux := newMux(appLogger)

	log.Printf("Server starting on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, mux))
}
