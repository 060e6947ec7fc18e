// Package server - JSON-file persistence for analysis jobs.
package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JobStore provides persistent storage for jobs.
type JobStore struct {
	mu       sync.RWMutex
	filePath string
	jobs     map[string]*Job
	dirty    bool
	done     chan struct{}
}

// NewJobStore creates a job store backed by a JSON file.
func NewJobStore(storagePath string) (*JobStore, error) {
	dir := filepath.Dir(storagePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &JobStore{
		filePath: storagePath,
		jobs:     make(map[string]*Job),
		done:     make(chan struct{}),
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	go store.autoSave()

	return store, nil
}

// Get retrieves a copy of a job by ID. The store keeps the only live
// pointer, so readers never observe a concurrent mutation.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Put stores a job.
func (s *JobStore) Put(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &job
	s.dirty = true
}

// Update mutates a job under the store lock and returns the updated
// copy. All writes after Put go through here.
func (s *JobStore) Update(id string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(job)
	s.dirty = true
	return *job, true
}

// Delete removes a job.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	s.dirty = true
}

// List returns copies of all jobs, newest first.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	sortJobsNewestFirst(jobs)
	return jobs
}

// Save persists all jobs to disk.
func (s *JobStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JobStore) saveLocked() error {
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	s.dirty = false
	return nil
}

func (s *JobStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return json.Unmarshal(data, &s.jobs)
}

func (s *JobStore) autoSave() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.dirty {
				s.saveLocked()
			}
			s.mu.Unlock()
		}
	}
}

// Close saves and stops the store.
func (s *JobStore) Close() error {
	close(s.done)
	return s.Save()
}

// Cleanup removes finished jobs older than maxAge. Returns the number
// removed.
func (s *JobStore) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status != JobCompleted && job.Status != JobFailed {
			continue
		}
		if job.EndTime != nil && job.EndTime.Before(cutoff) {
			delete(s.jobs, id)
			removed++
			s.dirty = true
		}
	}

	return removed
}

func sortJobsNewestFirst(jobs []Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].StartTime.After(jobs[j-1].StartTime); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}
