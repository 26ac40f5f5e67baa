package webapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/httpmw"
	"taskpad/internal/session"
	"taskpad/internal/task"
	staticfiles "taskpad/static"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger

	// Clock overrides the store's clock; tests inject a FakeClock.
	Clock task.Clock
}

type Server struct {
	store    *task.Store
	sessions *session.Manager
	clock    task.Clock
	logger   *log.Logger
}

// NewHandler wires the store, sessions, pages and middleware into one
// http.Handler.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = task.RealClock{}
	}

	store, err := task.NewStore(opts.Config.Store.DataDir, task.StoreOptions{
		Clock:       opts.Clock,
		Logger:      opts.Logger,
		Strict:      opts.Config.Store.Strict,
		LockTimeout: opts.Config.LockTimeout(),
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.NewMemoryStore(), opts.Config.Server.CookieSecure)

	srv := &Server{
		store:    store,
		sessions: sessions,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}

	mux := http.NewServeMux()

	staticHandler := http.FileServer(http.FS(staticfiles.EmbeddedFS()))
	if opts.Config.Static.UseDisk {
		staticHandler = http.FileServer(http.Dir(opts.Config.Static.Dir))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskpad",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := store.LoadAll(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskpad",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/", srv.Index)
	mux.HandleFunc("/create", srv.CreateForm)
	mux.HandleFunc("/actions", srv.Actions)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		sessions.Middleware,
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
