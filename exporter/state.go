package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// RunState is the resume store: the set of colour URLs already completed.
// Read once at startup, flushed after every completed colour, and only
// ever added to during a run. A missing or corrupted file means a fresh
// start, never an error.
type RunState struct {
	path string
	done map[string]bool
}

type runStateFile struct {
	Done []string `json:"done"`
}

// LoadRunState reads the state file at path, tolerating its absence.
func LoadRunState(path string) *RunState {
	s := &RunState{path: path, done: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var f runStateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return s
	}
	for _, url := range f.Done {
		s.done[url] = true
	}
	return s
}

// IsDone reports whether a colour URL was completed in a previous run.
func (s *RunState) IsDone(url string) bool {
	return s.done[url]
}

// MarkDone records a completed colour and flushes the file immediately,
// so an interrupted run resumes from the last finished colour.
func (s *RunState) MarkDone(url string) error {
	s.done[url] = true

	urls := make([]string, 0, len(s.done))
	for u := range s.done {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	data, err := json.MarshalIndent(runStateFile{Done: urls}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}

// Count returns the number of completed colours.
func (s *RunState) Count() int {
	return len(s.done)
}
