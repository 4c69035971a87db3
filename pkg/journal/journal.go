// Package journal appends observed leader trades and executed mirror trades
// to a JSON-Lines file.
package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/solana-zh/solmirror/pkg"
	"go.uber.org/zap"
)

// Record kinds.
const (
	KindTradeObserved  = "trade_observed"
	KindMirrorExecuted = "mirror_executed"
)

// Record is one journal line. Exactly one of Trade or Execution is set,
// according to Kind.
type Record struct {
	Kind      string             `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	Trade     *pkg.Trade         `json:"trade,omitempty"`
	Execution *pkg.ExecutedTrade `json:"execution,omitempty"`
}

// Journal is an append-only writer. Each record is written and flushed
// before the call returns; write failures are logged and swallowed so they
// never block the pipeline.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	log  *zap.Logger
}

// Open creates the journal file (and its directory) in append mode.
func Open(path string, log *zap.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	return &Journal{file: f, log: log}, nil
}

// RecordTrade appends a trade_observed record.
func (j *Journal) RecordTrade(trade *pkg.Trade) {
	j.write(Record{Kind: KindTradeObserved, Timestamp: time.Now().UTC(), Trade: trade})
}

// RecordExecution appends a mirror_executed record.
func (j *Journal) RecordExecution(exec *pkg.ExecutedTrade) {
	j.write(Record{Kind: KindMirrorExecuted, Timestamp: time.Now().UTC(), Execution: exec})
}

func (j *Journal) write(rec Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		j.log.Error("journal encode failed", zap.Error(err))
		return
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(line); err != nil {
		j.log.Error("journal write failed", zap.Error(err))
		return
	}
	if err := j.file.Sync(); err != nil {
		j.log.Error("journal sync failed", zap.Error(err))
	}
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// ReadRecords loads every record from a journal file, newest last. Used by
// tooling and tests; the live pipeline never reads the journal back.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode journal record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
