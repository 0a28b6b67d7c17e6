// Package tasks is the asynchronous search façade: submissions are
// handed to a background worker pool and polled by id. Workers are
// fully decoupled from request handling; the two sides share only the
// result cache and the task registry this service owns.
package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/molsearch/molsearch/application/search"
	"github.com/molsearch/molsearch/pkg/apperrors"
	"github.com/molsearch/molsearch/pkg/observability"
)

// Status is the lifecycle state of a search task. Transitions run
// PENDING -> STARTED -> SUCCESS | FAILURE; the terminal states never
// change again.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusStarted Status = "STARTED"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// SourceCacheSearch tags a submission that was answered from the
// per-query cache entry without minting a task.
const SourceCacheSearch = "cache search"

// Submission is the response to a search task submission: either a
// task handle to poll, or the cached result directly.
type Submission struct {
	TaskID string               `json:"task_id,omitempty"`
	Status Status               `json:"status,omitempty"`
	Link   string               `json:"link,omitempty"`
	Source string               `json:"source,omitempty"`
	Data   *search.SearchResult `json:"data,omitempty"`
}

// TaskStatus is the poll response for a task id
type TaskStatus struct {
	TaskID string           `json:"task_id"`
	Status Status           `json:"status"`
	Result *search.Response `json:"result,omitempty"`
}

type taskRecord struct {
	status Status
	result *search.Response
}

type job struct {
	id    string
	query string
}

// Service runs the background worker pool and the task registry.
type Service struct {
	searcher *search.Service
	metrics  *observability.Collector
	logger   *zap.Logger
	baseURL  string

	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.RWMutex
	tasks  map[string]*taskRecord
	closed bool
}

// NewService starts workers goroutines consuming the submission
// queue. queueCap bounds how many submissions may wait; a full queue
// rejects new work rather than blocking request handlers.
func NewService(
	searcher *search.Service,
	metrics *observability.Collector,
	logger *zap.Logger,
	baseURL string,
	workers int,
	queueCap int,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	s := &Service{
		searcher: searcher,
		metrics:  metrics,
		logger:   logger,
		baseURL:  baseURL,
		jobs:     make(chan job, queueCap),
		group:    group,
		cancel:   cancel,
		tasks:    make(map[string]*taskRecord),
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}
	return s
}

// Submit queues an asynchronous search for query. A cached result for
// the exact query short-circuits: it is returned directly and no task
// id is minted, so there is nothing to poll in that branch.
func (s *Service) Submit(ctx context.Context, query string) (*Submission, error) {
	if data, ok := s.searcher.CachedResult(ctx, query); ok {
		return &Submission{Source: SourceCacheSearch, Data: data}, nil
	}

	id := uuid.New().String()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.NewUnavailableError("task queue is shut down")
	}
	s.tasks[id] = &taskRecord{status: StatusPending}
	s.mu.Unlock()

	select {
	case s.jobs <- job{id: id, query: query}:
	default:
		s.mu.Lock()
		delete(s.tasks, id)
		s.mu.Unlock()
		return nil, apperrors.NewUnavailableError("task queue is full")
	}

	s.metrics.TasksSubmitted.Inc()
	s.logger.Info("search task submitted",
		zap.String("taskID", id),
		zap.String("query", query),
	)
	return &Submission{
		TaskID: id,
		Status: StatusPending,
		Link:   s.baseURL + "/tasks/" + id,
	}, nil
}

// Poll reports the state of a task. Unknown ids read as PENDING, the
// broker convention the API has always exposed: a freshly submitted
// id and a never-submitted one are indistinguishable to the caller.
func (s *Service) Poll(taskID string) TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tasks[taskID]
	if !ok {
		return TaskStatus{TaskID: taskID, Status: StatusPending}
	}
	status := TaskStatus{TaskID: taskID, Status: record.status}
	if record.status == StatusSuccess {
		status.Result = record.result
	}
	return status
}

// Close stops intake and waits for running workers to finish. Running
// tasks complete; queued ones are drained and executed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.jobs)
	err := s.group.Wait()
	s.cancel()
	return err
}

// worker consumes jobs until the queue closes. A caller abandoning a
// task does not cancel it; the search runs to completion and the
// result is published regardless.
func (s *Service) worker(ctx context.Context) {
	for j := range s.jobs {
		s.run(ctx, j)
	}
}

func (s *Service) run(ctx context.Context, j job) {
	s.setStatus(j.id, StatusStarted, nil)

	resp, err := s.searcher.SearchAll(ctx, j.query)
	if err != nil {
		s.logger.Error("search task failed",
			zap.String("taskID", j.id),
			zap.String("query", j.query),
			zap.Error(err),
		)
		s.setStatus(j.id, StatusFailure, nil)
		s.metrics.TasksCompleted.WithLabelValues(string(StatusFailure)).Inc()
		return
	}

	s.setStatus(j.id, StatusSuccess, resp)
	s.metrics.TasksCompleted.WithLabelValues(string(StatusSuccess)).Inc()
	s.logger.Info("search task completed",
		zap.String("taskID", j.id),
		zap.Int("matches", len(resp.Data.Result)),
	)
}

func (s *Service) setStatus(taskID string, status Status, result *search.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tasks[taskID]; ok {
		record.status = status
		record.result = result
	}
}
