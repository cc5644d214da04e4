package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

// fileStore keeps the task set in memory and rewrites one JSON document on
// every mutation.
//
// Files:
//   - <path>                 {"tasks": [...], "counter": N}
//   - <prefix>.audit.jsonl   append-only JSON Lines
type fileStore struct {
	*memStore

	log       logx.Logger
	path      string
	auditFile *os.File
}

type fileDoc struct {
	Tasks   []task.Task `json:"tasks"`
	Counter int64       `json:"counter"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	mem := newMemStore()
	doc, err := loadFileDoc(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, t := range doc.Tasks {
		mem.tasks[t.ID] = t
		mem.counter = max(mem.counter, t.ID)
	}
	mem.counter = max(mem.counter, doc.Counter)

	prefix := strings.TrimSuffix(path, filepath.Ext(path))
	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	s := &fileStore{memStore: mem, log: log, path: path, auditFile: af}
	mem.onChange = s.persistLocked
	log.Debug("file store opened", logx.String("path", path), logx.Int("tasks", len(mem.tasks)), logx.Int64("counter", mem.counter))
	return s, nil
}

func loadFileDoc(path string) (fileDoc, error) {
	var doc fileDoc
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return doc, nil
	}
	err = json.Unmarshal(b, &doc)
	return doc, err
}

// persistLocked writes the document via tmp + rename. Call with mu held.
func (s *fileStore) persistLocked() error {
	doc := fileDoc{Tasks: make([]task.Task, 0, len(s.tasks)), Counter: s.counter}
	for _, t := range s.tasks {
		doc.Tasks = append(doc.Tasks, t)
	}
	sort.Slice(doc.Tasks, func(i, j int) bool { return doc.Tasks[i].ID < doc.Tasks[j].ID })

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", task.ErrStore, err)
	}
	return nil
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	f := s.auditFile
	s.auditFile = nil
	s.closed = true
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}
