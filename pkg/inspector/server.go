package inspector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/FFengIll/psdash/pkg"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server exposes an Inspector over HTTP:
//
//	GET  /tasks   snapshot
//	POST /tasks   terminate the pid in the body
//	POST /memory  memory map of the pid in the body
type Server struct {
	inspector Inspector
	router    *mux.Router
}

func NewServer(inspector Inspector) *Server {
	s := &Server{
		inspector: inspector,
		router:    mux.NewRouter().StrictSlash(true),
	}
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/tasks", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/tasks", s.handleTerminate).Methods(http.MethodPost)
	s.router.HandleFunc("/memory", s.handleMemory).Methods(http.MethodPost)
	return s
}

// Handler wraps the router with the default CORS policy.
func (s *Server) Handler() http.Handler {
	return cors.Default().Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Infoln("inspector listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logrus.Infoln("inspector shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "psdash inspector")
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.inspector.Snapshot(r.Context())
	if err != nil {
		logrus.WithError(err).Errorln("snapshot failed")
		http.Error(w, "error reading processes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	pid, ok := readPid(w, r)
	if !ok {
		return
	}
	if err := s.inspector.Terminate(r.Context(), pid); err != nil {
		writeInspectorError(w, pid, err, "error killing process")
		return
	}
	logrus.WithField("pid", pid).Infoln("process deleted")
	fmt.Fprintln(w, "process deleted")
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	pid, ok := readPid(w, r)
	if !ok {
		return
	}
	memory, err := s.inspector.MemoryMap(r.Context(), pid)
	if err != nil {
		writeInspectorError(w, pid, err, "error reading process memory")
		return
	}
	writeJSON(w, memory)
}

func readPid(w http.ResponseWriter, r *http.Request) (int32, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return 0, false
	}
	pid, err := pkg.ParsePid(string(body))
	if err != nil {
		http.Error(w, "invalid pid", http.StatusBadRequest)
		return 0, false
	}
	return pid, true
}

func writeInspectorError(w http.ResponseWriter, pid int32, err error, msg string) {
	log := logrus.WithField("pid", pid).WithError(err)
	if errors.Is(err, ErrNoProcess) {
		log.Warningln("unknown pid")
		http.Error(w, "no such process", http.StatusNotFound)
		return
	}
	log.Errorln(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
