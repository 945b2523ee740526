package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dcsim/dc-simulator/pkg/model"
)

// JSONLSink appends one JSON object per line to two files: a snapshot log
// and an audit log, opened for the lifetime of the sink.
type JSONLSink struct {
	mu          sync.Mutex
	snapshotOut *os.File
	auditOut    *os.File
}

// NewJSONLSink opens (creating/appending) snapshotPath and auditPath.
func NewJSONLSink(snapshotPath, auditPath string) (*JSONLSink, error) {
	snapF, err := os.OpenFile(snapshotPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}
	auditF, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		snapF.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &JSONLSink{snapshotOut: snapF, auditOut: auditF}, nil
}

func (s *JSONLSink) WriteSnapshot(snap model.FacilityState) error {
	return appendLine(&s.mu, s.snapshotOut, snap)
}

func (s *JSONLSink) WriteAudit(entry model.AuditEntry) error {
	return appendLine(&s.mu, s.auditOut, entry)
}

func appendLine(mu *sync.Mutex, f *os.File, v any) error {
	mu.Lock()
	defer mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = f.Write(b)
	return err
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err1 := s.snapshotOut.Close()
	err2 := s.auditOut.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
