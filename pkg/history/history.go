// Package history persists run and revision records under .patchpilot/ and
// renders diffs for display.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	historyDirName    = ".patchpilot"
	runsFileName      = "history.jsonl"
	revisionsFileName = "revisions.jsonl"
)

// RunRecord captures the outcome of one orchestration run.
type RunRecord struct {
	RunID          string    `json:"runId"`
	Timestamp      time.Time `json:"timestamp"`
	Instruction    string    `json:"instruction"`
	File           string    `json:"file"`
	Tier           string    `json:"tier"`
	Succeeded      bool      `json:"succeeded"`
	Validated      bool      `json:"validated"`
	QualityScore   int       `json:"qualityScore"`
	RetryCount     int       `json:"retryCount"`
	FailureReason  string    `json:"failureReason,omitempty"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	OriginalCode   string    `json:"originalCode"`
	FinalCode      string    `json:"finalCode"`
}

// RevisionRecord captures one file modification applied as a side effect, with
// enough state to display or manually revert it later.
type RevisionRecord struct {
	RevisionID string    `json:"revisionId"`
	RunID      string    `json:"runId,omitempty"`
	Path       string    `json:"path"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store appends and reads history records beneath a project root. Records are
// JSON lines, one per record, append-only.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given project directory. An empty
// root means the current directory.
func NewStore(root string) *Store {
	if root == "" {
		root = "."
	}
	return &Store{root: root}
}

func (s *Store) runsPath() string {
	return filepath.Join(s.root, historyDirName, runsFileName)
}

func (s *Store) revisionsPath() string {
	return filepath.Join(s.root, historyDirName, revisionsFileName)
}

// AppendRun records a finished run. A zero timestamp is filled in.
func (s *Store) AppendRun(record RunRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return s.appendLine(s.runsPath(), record)
}

// AppendRevision records a file modification. Missing revision IDs and
// timestamps are filled in; the assigned ID is returned.
func (s *Store) AppendRevision(record RevisionRecord) (string, error) {
	if record.RevisionID == "" {
		record.RevisionID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := s.appendLine(s.revisionsPath(), record); err != nil {
		return "", err
	}
	return record.RevisionID, nil
}

// RecentRuns returns up to limit run records, most recent first. A missing
// history file yields an empty slice. Lines that fail to parse are skipped.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	file, err := os.Open(s.runsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var records []RunRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	// Newest last on disk, newest first for display.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// RevisionsForRun returns the revisions recorded for a run, oldest first.
func (s *Store) RevisionsForRun(runID string) ([]RevisionRecord, error) {
	file, err := os.Open(s.revisionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open revisions file: %w", err)
	}
	defer file.Close()

	var records []RevisionRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record RevisionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record.RunID == runID {
			records = append(records, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read revisions file: %w", err)
	}
	return records, nil
}

func (s *Store) appendLine(path string, record any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}
