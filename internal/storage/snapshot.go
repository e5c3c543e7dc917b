package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"buddy_go/internal/domain"
)

// Snapshot is the wallet state seen at the end of a session. It is shown at
// the next start until the sync loop has fresh numbers.
type Snapshot struct {
	SyncedBlocks uint64                    `json:"synced_blocks"`
	TotalBlocks  uint64                    `json:"total_blocks"`
	TsUnix       int64                     `json:"ts"`
	Balances     map[domain.TokenID]uint64 `json:"balances"`
}

// SnapshotManager handles saving and loading snapshots.
type SnapshotManager struct {
	dir string
}

func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// CreateSnapshot copies the given state into a new snapshot.
func CreateSnapshot(synced, total uint64, balances map[domain.TokenID]uint64) *Snapshot {
	cp := make(map[domain.TokenID]uint64, len(balances))
	for k, v := range balances {
		cp[k] = v
	}
	return &Snapshot{
		SyncedBlocks: synced,
		TotalBlocks:  total,
		TsUnix:       time.Now().Unix(),
		Balances:     cp,
	}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := filepath.Join(sm.dir, fmt.Sprintf("snapshot_%d_%d.json", snap.TsUnix, snap.SyncedBlocks))

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved", "synced", snap.SyncedBlocks, "path", path)
	return nil
}

type snapFile struct {
	path string
	ts   int64
	seq  uint64
}

func (sm *SnapshotManager) list() ([]snapFile, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return nil, err
	}

	var files []snapFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var f snapFile
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &f.ts, &f.seq); err != nil {
			continue
		}
		f.path = filepath.Join(sm.dir, entry.Name())
		files = append(files, f)
	}

	// Newest first.
	slices.SortFunc(files, func(a, b snapFile) int {
		if c := cmp.Compare(b.ts, a.ts); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return files, nil
}

// LoadLatest loads the most recent snapshot. Returns nil if none exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	files, err := sm.list()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(files[0].path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded", "synced", snap.SyncedBlocks, "path", files[0].path)
	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	files, err := sm.list()
	if err != nil {
		return err
	}
	if len(files) <= keepCount {
		return nil
	}

	for _, f := range files[keepCount:] {
		if err := os.Remove(f.path); err != nil {
			slog.Warn("Failed to remove old snapshot", "path", f.path)
		} else {
			slog.Info("Removed old snapshot", "path", f.path)
		}
	}
	return nil
}
