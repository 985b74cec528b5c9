// Package mockservice is a local stand-in for the visual-testing service. It
// speaks the eyes protocol, stores uploaded resources, keeps text baselines
// per test and tag, and reports differences with a text diff in place of a
// visual comparison.
package mockservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/resource"
	"github.com/raysh454/eyes/internal/transport"
)

const resourcePrefix = "/eyes/resource/"

// Service is the mock visual-testing service.
type Service struct {
	cfg    Config
	store  Store
	router chi.Router
	logger logging.Logger

	mu       sync.Mutex
	batch    *batch
	session  *session
	failures map[string]string
	requests []RecordedRequest
}

// New creates a Service. A nil store keeps state in memory.
func New(cfg Config, store Store, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewStdoutLogger("mockservice")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	failures := make(map[string]string, len(cfg.Failures))
	for k, v := range cfg.Failures {
		failures[k] = v
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		router:   chi.NewRouter(),
		logger:   logger,
		failures: failures,
	}
	s.routes()
	return s
}

// Open builds a Service whose store follows cfg.StorePath.
func Open(cfg Config, logger logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewStdoutLogger("mockservice")
	}
	var store Store = NewMemoryStore()
	if cfg.StorePath != "" {
		sqlStore, err := NewSQLiteStore(cfg.StorePath, logger)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		store = sqlStore
	}
	return New(cfg, store, logger), nil
}

func (s *Service) routes() {
	r := s.router
	r.Put(resourcePrefix+"*", s.handleResourcePut)
	r.Get(resourcePrefix+"*", s.handleResourceGet)
	r.Post("/eyes/{command}", s.handleCommand)
}

// ServeHTTP records and logs every request before routing it.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		if b, err := io.ReadAll(r.Body); err == nil {
			body = b
			r.Body = io.NopCloser(bytes.NewReader(b))
		}
	}
	command := strings.TrimPrefix(r.URL.EscapedPath(), "/eyes/")

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:      r.Method,
		Command:     command,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		At:          time.Now(),
	})
	s.mu.Unlock()

	s.logger.Debug("http_request",
		logging.F("method", r.Method),
		logging.F("command", command),
		logging.F("bytes", len(body)))

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Service) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s,
		ReadTimeout: 15 * time.Second,
	}
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Requests returns a copy of every request received so far.
func (s *Service) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// SetFailure makes command fail with message. An empty message clears it.
// Use "resource" for uploads.
func (s *Service) SetFailure(command, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.failures, command)
		return
	}
	s.failures[command] = message
}

func (s *Service) injectedFailure(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.failures[command]; ok {
		return errors.New(msg)
	}
	return nil
}

// --- envelope helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, result any) {
	env := transport.Envelope{Success: true}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		env.Result = raw
	}
	writeJSON(w, http.StatusOK, env)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, transport.Envelope{Success: false, Error: msg})
}

// --- HTTP handlers ---

func (s *Service) handleCommand(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	if err := s.injectedFailure(command); err != nil {
		s.logger.Warn("injected failure", logging.F("command", command), logging.Err(err))
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		result any
		err    error
	)
	switch command {
	case "batchStart":
		result = s.batchStart()
	case "batchEnd":
		result, err = s.batchEnd()
	case "open":
		result, err = s.open(r.Body)
	case "checkWindow":
		result, err = s.checkWindow(r.Context(), r.Body)
	case "close":
		result, err = s.close()
	default:
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("unknown command %q", command))
		return
	}
	if err != nil {
		s.logger.Warn("command failed", logging.F("command", command), logging.Err(err))
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, result)
}

func resourceURL(r *http.Request) (string, error) {
	encoded := strings.TrimPrefix(r.URL.EscapedPath(), resourcePrefix)
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("bad resource path: %w", err)
	}
	if decoded == "" {
		return "", errors.New("empty resource url")
	}
	return decoded, nil
}

func (s *Service) handleResourcePut(w http.ResponseWriter, r *http.Request) {
	if err := s.injectedFailure("resource"); err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	u, err := resourceURL(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.PutResource(r.Context(), &StoredResource{
		URL:         u,
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("stored resource", logging.F("url", u), logging.F("bytes", len(data)))
	writeResult(w, nil)
}

func (s *Service) handleResourceGet(w http.ResponseWriter, r *http.Request) {
	u, err := resourceURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.store.GetResource(r.Context(), u)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	_, _ = w.Write(res.Data)
}

// --- commands ---

func (s *Service) batchStart() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		s.logger.Warn("batch started while another was open", logging.F("batch", s.batch.id))
	}
	s.batch = &batch{id: uuid.NewString()}
	s.logger.Info("batch started", logging.F("batch", s.batch.id))
	return map[string]string{"batchId": s.batch.id}
}

// batchEnd answers WIP for the configured number of polls, then returns the
// summary and forgets the batch.
func (s *Service) batchEnd() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil, errors.New("no batch in progress")
	}
	b := s.batch
	b.ending = true
	if b.polls < s.cfg.PendingPolls {
		b.polls++
		return map[string]string{"status": "WIP"}, nil
	}
	s.batch = nil
	sum := b.summary()
	s.logger.Info("batch finished",
		logging.F("batch", b.id),
		logging.F("tests", len(sum.Tests)),
		logging.F("unresolved", sum.Unresolved))
	return sum, nil
}

type openRequest struct {
	TestName  string `json:"testName"`
	AppName   string `json:"appName"`
	BatchName string `json:"batchName"`
}

func (s *Service) open(body io.Reader) (any, error) {
	var req openRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid open request: %w", err)
	}
	if req.TestName == "" {
		return nil, errors.New("testName is required")
	}
	if req.AppName == "" {
		req.AppName = "default"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil, fmt.Errorf("test %q is still open", s.session.testName)
	}
	if s.batch == nil {
		s.batch = &batch{id: uuid.NewString()}
	} else if s.batch.ending {
		return nil, errors.New("batch is ending")
	}
	if req.BatchName != "" {
		s.batch.name = req.BatchName
	}
	s.session = &session{
		id:        uuid.NewString(),
		appName:   req.AppName,
		testName:  req.TestName,
		startedAt: time.Now(),
	}
	s.logger.Info("test opened", logging.F("test", req.TestName), logging.F("session", s.session.id))
	return map[string]string{"sessionId": s.session.id}, nil
}

type checkRequest struct {
	URL          string              `json:"url"`
	ResourceURLs []string            `json:"resourceUrls"`
	CDT          capture.CDT         `json:"cdt"`
	Tag          string              `json:"tag"`
	BlobData     []resource.BlobData `json:"blobData"`
}

func (s *Service) checkWindow(ctx context.Context, body io.Reader) (any, error) {
	var req checkRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid checkWindow request: %w", err)
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return nil, errors.New("no test is open")
	}

	for _, b := range req.BlobData {
		if _, err := s.store.GetResource(ctx, b.URL); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("resource not uploaded: %s", b.URL)
			}
			return nil, err
		}
	}

	s.mu.Lock()
	index := len(sess.steps)
	s.mu.Unlock()
	tag := req.Tag
	if tag == "" {
		tag = fmt.Sprintf("step %d", index+1)
	}

	key := BaselineKey{AppName: sess.appName, TestName: sess.testName, Tag: tag}
	text := renderText(req.CDT)
	step := StepResult{AsExpected: true, StepIndex: index, Tag: tag}

	baseline, err := s.store.GetBaseline(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.store.SaveBaseline(ctx, key, text); err != nil {
			return nil, err
		}
		step.Status = StepNew
	case err != nil:
		return nil, err
	default:
		step.Diff = compareText(baseline, text)
		step.Status = StepMatched
		if len(step.Diff) > 0 {
			step.Status = StepDifferent
			step.AsExpected = false
		}
	}

	s.mu.Lock()
	sess.steps = append(sess.steps, step)
	s.mu.Unlock()

	s.logger.Info("window checked",
		logging.F("test", sess.testName),
		logging.F("tag", tag),
		logging.F("status", step.Status))
	return step, nil
}

func (s *Service) close() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errors.New("no test is open")
	}
	sum := s.session.summary()
	s.session = nil
	if s.batch != nil {
		s.batch.tests = append(s.batch.tests, sum)
	}
	s.logger.Info("test closed", logging.F("test", sum.TestName), logging.F("status", sum.Status))
	return sum, nil
}
