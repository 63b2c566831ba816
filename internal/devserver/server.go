// Package devserver serves a build directory, rebuilds the document whenever
// a source file changes and tells connected browsers to reload.
package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/engine"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// ReloadPath is the server-sent events endpoint pages subscribe to.
const ReloadPath = "/__reload"

// Builder runs a complete build.
type Builder interface {
	Build(ctx context.Context) (*engine.Result, error)
}

// Config holds dev server configuration.
type Config struct {
	Builder Builder
	// BuildDir is served at the root.
	BuildDir string
	// WatchDir is watched recursively for source changes. BuildDir and
	// hidden directories below it are skipped.
	WatchDir string
	// Addr is the listen address (default ":8080").
	Addr string
	// Debounce delays rebuilds until changes settle (default 100ms).
	Debounce time.Duration
	Logger   *slog.Logger
}

// Status is the outcome of the latest build.
type Status struct {
	OK         bool      `json:"ok"`
	BuildID    string    `json:"build_id,omitempty"`
	Files      int       `json:"files"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Server is the development server.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	notifier *Notifier

	// buildMu serialises builds; the engine is not safe for concurrent use.
	buildMu sync.Mutex

	mu     sync.RWMutex
	status Status
	builds int
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cfg: cfg, logger: logger, notifier: NewNotifier()}
}

// Notifier returns the reload notifier.
func (s *Server) Notifier() *Notifier { return s.notifier }

// Status returns the outcome of the latest build.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Builds returns the number of builds run so far.
func (s *Server) Builds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builds
}

// Rebuild runs a build, records its outcome and tells browsers to reload.
// A failed build is reported, not returned: the server keeps running and
// shows the diagnostic instead of the pages. Concurrent calls run one
// after another.
func (s *Server) Rebuild(ctx context.Context) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	res, err := s.cfg.Builder.Build(ctx)

	st := Status{OK: err == nil, FinishedAt: time.Now()}
	var srcs *source.Map
	if res != nil {
		st.BuildID = res.BuildID
		st.Files = len(res.Written)
		srcs = res.Sources
	}
	if err != nil {
		st.Error = engine.Diagnose(err, srcs).String()
		s.logger.Error("rebuild failed", "error", err)
	} else {
		s.logger.Info("rebuild complete", "build_id", st.BuildID, "files", st.Files)
	}

	s.mu.Lock()
	s.status = st
	s.builds++
	s.mu.Unlock()

	s.notifier.Broadcast(st)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.NoCache,
	)
	r.Get(ReloadPath, s.handleReload)
	r.Get("/__status", s.handleStatus)
	r.Get("/*", s.handleFile)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleReload streams one event per finished rebuild: "reload" after a
// successful build, "failed" after a broken one.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sub := s.notifier.Subscribe()
	defer sub.Close()

	_, _ = fmt.Fprint(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-sub.C:
			if !ok {
				return
			}
			msg := "reload"
			if !st.OK {
				msg = "failed"
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}

// handleFile serves the build directory. HTML pages get the live reload
// script; while the latest build is broken every page shows its diagnostic.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if st := s.Status(); !st.OK && st.Error != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, errorPage, html.EscapeString(st.Error), liveReloadScript)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	full := filepath.Join(s.cfg.BuildDir, filepath.FromSlash(name))
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
	}

	if !strings.EqualFold(filepath.Ext(full), ".html") {
		http.ServeFile(w, r, full)
		return
	}

	data, err := os.ReadFile(full) //nolint:gosec // G304: confined to the build directory by path.Clean
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(InjectReload(data))
}

// InjectReload adds the live reload script to a page, before </body> if
// there is one.
func InjectReload(page []byte) []byte {
	script := []byte(liveReloadScript)
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page[:len(page):len(page)], script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:i]...)
	out = append(out, script...)
	return append(out, page[i:]...)
}

// Serve builds once, then serves and watches until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.Rebuild(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := s.watchDir(watcher, s.cfg.WatchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.cfg.WatchDir, err)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.watchLoop(egctx, watcher)
		return nil
	})

	eg.Go(func() error {
		s.logger.Info("dev server running", "addr", s.cfg.Addr, "watching", s.cfg.WatchDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down dev server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchDir adds dir and its subdirectories to the watcher.
func (s *Server) watchDir(watcher *fsnotify.Watcher, dir string) error {
	build, _ := filepath.Abs(s.cfg.BuildDir)
	return filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == build {
			return filepath.SkipDir
		}
		if name := entry.Name(); p != dir && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// relevant reports whether an event should trigger a rebuild.
func (s *Server) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	build, _ := filepath.Abs(s.cfg.BuildDir)
	abs, _ := filepath.Abs(event.Name)
	return abs != build && !strings.HasPrefix(abs, build+string(filepath.Separator))
}

// watchLoop debounces relevant events into rebuilds.
func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = s.watchDir(watcher, event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(s.cfg.Debounce, func() {
				s.logger.Info("change detected", "file", name)
				s.Rebuild(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

const errorPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Build failed</title></head>
<body><h1>Build failed</h1><pre>%s</pre>%s</body></html>
`

// liveReloadScript reloads the page whenever the server reports a rebuild.
const liveReloadScript = `<script>
(function() {
  var es = new EventSource('` + ReloadPath + `');
  es.onmessage = function(e) {
    if (e.data === 'reload' || e.data === 'failed') {
      window.location.reload();
    }
  };
  es.onerror = function() {
    es.close();
    setTimeout(function() { window.location.reload(); }, 1000);
  };
})();
</script>`
