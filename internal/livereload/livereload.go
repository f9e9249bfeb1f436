// Package livereload fans "changed" notifications out to browsers over
// Server-Sent Events.
package livereload

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/sjson"
)

// Message returns the reload payload for a rebuild triggered by path.
func Message(path, buildID string) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{"command":"reload"}`), "path", path)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(msg, "build", buildID)
}

// Server holds the connected listeners.
type Server struct {
	mu        sync.RWMutex
	clients   map[chan []byte]struct{}
	reloads   int
	last      string
	lastAt    time.Time
	done      chan struct{}
	closeOnce sync.Once
	srv       *http.Server
}

// New creates a Server with no listeners.
func New() *Server {
	return &Server{
		clients: make(map[chan []byte]struct{}),
		done:    make(chan struct{}),
	}
}

// Handler returns the HTTP routes:
//
//	GET /livereload     event stream, one "reload" event per rebuild
//	GET /livereload.js  client script that reloads the page on each event
//	GET /status         listener count and the last reload
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livereload", s.handleEvents)
	mux.HandleFunc("/livereload.js", s.handleScript)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start serves Handler on addr in the background and returns the base URL.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go s.srv.Serve(ln)
	return "http://" + ln.Addr().String(), nil
}

// Close disconnects every listener and stops the server.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Listeners returns the number of connected listeners.
func (s *Server) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Notify sends a reload event to every listener and returns how many
// received it. A listener that is not keeping up misses the event.
func (s *Server) Notify(path, buildID string) (int, error) {
	msg, err := Message(path, buildID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reloads++
	s.last = path
	s.lastAt = time.Now()

	sent := 0
	for ch := range s.clients {
		select {
		case ch <- msg:
			sent++
		default:
		}
	}
	return sent, nil
}

func (s *Server) subscribe() chan []byte {
	ch := make(chan []byte, 4)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case msg := <-ch:
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

const clientScript = `(function () {
  var es = new EventSource(%q);
  es.addEventListener("reload", function () { window.location.reload(); });
})();
`

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	fmt.Fprintf(w, clientScript, "//"+r.Host+"/livereload")
}

type status struct {
	Listeners  int    `json:"listeners"`
	Reloads    int    `json:"reloads"`
	LastPath   string `json:"last_path,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := status{Listeners: len(s.clients), Reloads: s.reloads, LastPath: s.last}
	if !s.lastAt.IsZero() {
		st.LastReload = s.lastAt.Format(time.RFC3339)
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
