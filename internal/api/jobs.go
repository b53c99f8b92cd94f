package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// JobStatus is the lifecycle state of an asynchronous scan.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Job tracks one asynchronous scan. Result is set once the job is done.
type Job struct {
	ID         string        `json:"id"`
	Target     string        `json:"target"`
	Status     JobStatus     `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Result     *model.Result `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j Job) Finished() bool {
	return j.Status == JobDone || j.Status == JobError
}

type JobRequest struct {
	Target string `json:"target"`
}

// JobManager keeps jobs in memory and fans state changes out to subscribers.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int // Maximum number of jobs to keep in memory
	dropped     int // Updates discarded for slow subscribers
}

func NewJobManager() *JobManager {
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     1000,
	}
	go m.cleanupLoop()
	return m
}

func (m *JobManager) CreateJob(target string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        generateID("scan"),
		Target:    target,
		Status:    JobPending,
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	snapshot := *job
	return &snapshot
}

// UpdateJob applies update under the lock and returns a snapshot, or nil if
// the job does not exist.
func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	snapshot := *job
	return &snapshot
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		snapshot := *job
		return &snapshot
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first.
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs[:limit]
}

func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 16)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// Dropped returns how many updates were discarded because a subscriber's
// buffer was full.
func (m *JobManager) Dropped() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

// broadcast must be called with m.mu held for writing.
func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			m.dropped++
		}
	}
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func (m *JobManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.prune()
	}
}

// prune drops the oldest finished jobs while more than maxJobs are held.
func (m *JobManager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return
	}

	finished := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.Finished() {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finishTime(finished[i]).Before(finishTime(finished[j]))
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, finished[i].ID)
	}
}

func finishTime(job *Job) time.Time {
	if job.FinishedAt != nil {
		return *job.FinishedAt
	}
	return job.CreatedAt
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}

// ScanJobService runs scans in the background and records them in a JobManager.
type ScanJobService struct {
	manager *JobManager
	scanner ScanService
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewScanJobService creates a job service. timeout bounds each background
// scan; zero means 90 seconds.
func NewScanJobService(manager *JobManager, scanner ScanService, timeout time.Duration, logger *zap.Logger) *ScanJobService {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanJobService{
		manager: manager,
		scanner: scanner,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *ScanJobService) StartJob(ctx context.Context, req JobRequest) (*Job, error) {
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return nil, fmt.Errorf("%w: target required", scanerrors.ErrInvalidTarget)
	}
	job := s.manager.CreateJob(target)
	s.wg.Add(1)
	go s.execute(job.ID, target)
	return job, nil
}

func (s *ScanJobService) execute(id, target string) {
	defer s.wg.Done()

	now := time.Now()
	s.manager.UpdateJob(id, func(j *Job) {
		j.Status = JobRunning
		j.StartedAt = &now
	})

	// Detached from the request that created the job.
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.scanner.Run(ctx, target)
	finished := time.Now()
	if err != nil {
		s.logger.Info("scan job failed", zap.String("job_id", id), zap.String("target", target), zap.Error(err))
		s.manager.UpdateJob(id, func(j *Job) {
			j.Status = JobError
			j.Error = publicError(err)
			j.FinishedAt = &finished
		})
		return
	}
	s.manager.UpdateJob(id, func(j *Job) {
		j.Status = JobDone
		j.Result = result
		j.FinishedAt = &finished
	})
}

// Wait blocks until every started job has finished.
func (s *ScanJobService) Wait() {
	s.wg.Wait()
}

func (s *ScanJobService) GetJob(ctx context.Context, id string) (*Job, error) {
	job := s.manager.GetJob(id)
	if job == nil {
		return nil, fmt.Errorf("%w: %s", scanerrors.ErrJobNotFound, id)
	}
	return job, nil
}

func (s *ScanJobService) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	return s.manager.ListJobs(limit), nil
}

func (s *ScanJobService) Subscribe() (chan Job, func()) {
	return s.manager.Subscribe()
}
