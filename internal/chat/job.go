package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/kv"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

var ErrJobNotFound = errors.New("chat: job not found")

// Job is a queued completion request processed by the worker.
type Job struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Prompt    string `json:"prompt"`

	IdempotencyKey *string `json:"idempotencyKey,omitempty"`

	Status JobStatus `json:"status"`

	// Filled when succeeded
	ResultMessageID *string `json:"resultMessageId,omitempty"`

	// Filled when failed
	Error *string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Store) loadJobs(ctx context.Context) map[string]*Job {
	raw, err := s.kv.Get(ctx, kv.KeyJobs)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("job map unavailable, treating as empty", zap.Error(err))
		}
		return map[string]*Job{}
	}
	var jobs map[string]*Job
	if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
		s.logger.Warn("job map corrupted, treating as empty", zap.Error(err))
		return map[string]*Job{}
	}
	if jobs == nil {
		jobs = map[string]*Job{}
	}
	return jobs
}

func (s *Store) saveJobs(ctx context.Context, jobs map[string]*Job) error {
	data, err := json.Marshal(jobs)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kv.KeyJobs, string(data))
}

// CreateJobOrGetExisting creates a queued job. If an idempotency key is
// given and a job with that key already exists, the existing job is
// returned instead and created is false.
func (s *Store) CreateJobOrGetExisting(ctx context.Context, sessionID, prompt string, idempotencyKey *string) (*Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.loadJobs(ctx)

	if idempotencyKey != nil && *idempotencyKey != "" {
		for _, j := range jobs {
			if j.IdempotencyKey != nil && *j.IdempotencyKey == *idempotencyKey {
				out := *j
				return &out, false, nil
			}
		}
	} else {
		idempotencyKey = nil
	}

	now := time.Now().UTC()
	job := &Job{
		ID:             NewJobID(),
		SessionID:      sessionID,
		Prompt:         prompt,
		IdempotencyKey: idempotencyKey,
		Status:         JobQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	jobs[job.ID] = job
	if err := s.saveJobs(ctx, jobs); err != nil {
		return nil, false, err
	}
	out := *job
	return &out, true, nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.loadJobs(ctx)[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	out := *job
	return &out, nil
}

func (s *Store) updateJob(ctx context.Context, jobID string, mutate func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.loadJobs(ctx)
	job, ok := jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	return s.saveJobs(ctx, jobs)
}

// MarkJobRunning transitions queued -> running; any other state is left alone.
func (s *Store) MarkJobRunning(ctx context.Context, jobID string) error {
	return s.updateJob(ctx, jobID, func(j *Job) {
		if j.Status == JobQueued {
			j.Status = JobRunning
		}
	})
}

func (s *Store) MarkJobSucceeded(ctx context.Context, jobID, assistantMsgID string) error {
	return s.updateJob(ctx, jobID, func(j *Job) {
		j.Status = JobSucceeded
		j.ResultMessageID = &assistantMsgID
		j.Error = nil
	})
}

func (s *Store) MarkJobFailed(ctx context.Context, jobID, errMsg string) error {
	return s.updateJob(ctx, jobID, func(j *Job) {
		j.Status = JobFailed
		j.Error = &errMsg
		j.ResultMessageID = nil
	})
}
