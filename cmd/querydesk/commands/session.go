package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/relaydev/querydesk/internal/api"
	"github.com/relaydev/querydesk/internal/orchestrator"
	"github.com/relaydev/querydesk/internal/render"
	"github.com/relaydev/querydesk/internal/requestlog"
	"github.com/relaydev/querydesk/internal/storage"
)

// session is the wired object graph shared by chat and ask.
type session struct {
	cfg      *Config
	log      *slog.Logger
	client   *api.Client
	orch     *orchestrator.Orchestrator
	renderer *render.Renderer
	db       *sql.DB
	logFile  *os.File
}

// openSession builds the client, renderer, request log and orchestrator.
// logTo overrides the default log destination under the base dir.
func openSession(cfg *Config, logTo io.Writer) (*session, error) {
	s := &session{cfg: cfg}

	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	if logTo == nil {
		f, err := os.OpenFile(filepath.Join(cfg.BaseDir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		s.logFile = f
		logTo = f
	}
	s.log = newLogger(logTo)

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		s.Close()
		return nil, err
	}
	shape, err := api.ParseShape(cfg.ResultShape)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.client, err = api.NewClient(cfg.APIURL,
		api.WithToken(cfg.APIToken),
		api.WithShape(shape),
		api.WithTimeout(timeout),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.renderer, err = render.New(render.WithStyle(cfg.Style), render.WithCodeLanguage(cfg.CodeLang))
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := []orchestrator.Option{orchestrator.WithLogger(s.log)}
	if cfg.LogRequests {
		store, err := s.openRequestLog()
		if err != nil {
			// The request log is optional; the session still works without it.
			s.log.Warn("request log disabled", "err", err)
		} else {
			opts = append(opts, orchestrator.WithRecorder(store))
		}
	}
	s.orch = orchestrator.New(s.client, opts...)

	s.log.Info("session started", "api_url", s.client.BaseURL(), "shape", shape, "timeout", timeout)
	return s, nil
}

func (s *session) openRequestLog() (*requestlog.Store, error) {
	db, err := storage.OpenDB(s.cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	store := requestlog.NewStore(db)
	if err := store.Init(); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return store, nil
}

func (s *session) Close() error {
	var errs []error
	if s.orch != nil {
		s.orch.Cancel()
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openRequestStore opens the request log for read-side commands.
func openRequestStore(cfg *Config) (*requestlog.Store, func() error, error) {
	db, err := storage.OpenDB(cfg.BaseDir)
	if err != nil {
		return nil, nil, err
	}
	store := requestlog.NewStore(db)
	if err := store.Init(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}
