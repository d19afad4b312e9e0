package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ooga-swap/pkg/types"
)

const (
	DefaultFileName = ".ooga-swap-history.json"

	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusReverted = "reverted"
)

// Record is one submitted swap
type Record struct {
	types.SwapStatus
	Router      string    `json:"router"`
	TokenIn     string    `json:"token_in"`
	TokenOut    string    `json:"token_out"`
	Amount      string    `json:"amount"`
	To          string    `json:"to"`
	AmountOut   string    `json:"amount_out,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists submitted swaps in a JSON file keyed by transaction hash
type Store struct {
	filePath string
	mu       sync.RWMutex
	records  map[string]*Record
}

type fileFormat struct {
	Swaps map[string]*Record `json:"swaps"`
}

// Open loads the store at filePath, or at DefaultFileName in the home
// directory when filePath is empty. A missing file is an empty store.
func Open(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &Store{
		filePath: filePath,
		records:  make(map[string]*Record),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to load swap history: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal swap history: %w", err)
	}
	if f.Swaps != nil {
		s.records = f.Swaps
	}
	return s, nil
}

// saveLocked writes all records. The caller holds mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(fileFormat{Swaps: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal swap history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write swap history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Add records a newly broadcast swap as pending
func (s *Store) Add(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.TxHash]; exists {
		return fmt.Errorf("swap %s already recorded", rec.TxHash)
	}

	now := time.Now().UTC()
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	s.records[rec.TxHash] = rec

	return s.saveLocked()
}

// Resolve stores the mined outcome of a swap. It returns false when the
// hash was never recorded.
func (s *Store) Resolve(status types.SwapStatus, amountOut string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[status.TxHash]
	if !exists {
		return false, nil
	}

	rec.SwapStatus = status
	if amountOut != "" {
		rec.AmountOut = amountOut
	}
	rec.UpdatedAt = time.Now().UTC()

	return true, s.saveLocked()
}

// Get retrieves a swap by transaction hash
func (s *Store) Get(txHash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[txHash]
	if !exists {
		return nil, fmt.Errorf("swap %s not found", txHash)
	}
	return rec, nil
}

// List returns swaps newest first, filtered by status unless status is empty
func (s *Store) List(status string) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// Path returns the file the store reads and writes
func (s *Store) Path() string {
	return s.filePath
}
