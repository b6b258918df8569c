// Package storage persists the ceremony batch document to local disk. Writes
// go to a work file first and are renamed over the durable file, so a crash
// mid-write can never corrupt the transcript.
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zkceremony/sequencer/ceremony"
)

// FileStore stores the batch document as a JSON file.
type FileStore struct {
	// Path is the durable location of the document.
	Path string
	// WorkPath is the temporary location written before the rename. It
	// must be on the same filesystem as Path.
	WorkPath string
}

// LoadOrCreate reads the batch document at Path, or creates a fresh batch of
// the given sizes if the file does not exist. A stored batch whose shard
// sizes differ from the configured ones is an error: shard sizes are fixed
// for the lifetime of a ceremony.
func (s *FileStore) LoadOrCreate(sizes []ceremony.ShardSize) (*ceremony.Batch, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return ceremony.NewBatch(sizes), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading transcript file: %v", err)
	}

	var b ceremony.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("error decoding transcript file: %v", err)
	}
	stored := b.Sizes()
	if len(stored) != len(sizes) {
		return nil, fmt.Errorf("stored transcript has %d shards, configured %d",
			len(stored), len(sizes))
	}
	for i := range sizes {
		if stored[i] != sizes[i] {
			return nil, fmt.Errorf("shard %d has sizes (%d, %d), configured (%d, %d)",
				i, stored[i].NumG1, stored[i].NumG2, sizes[i].NumG1, sizes[i].NumG2)
		}
	}
	return &b, nil
}

// Save writes the batch document atomically: marshal, write the work file,
// sync, then rename over the durable file.
func (s *FileStore) Save(b *ceremony.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("error encoding transcript: %v", err)
	}

	f, err := os.OpenFile(s.WorkPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error creating work file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("error writing work file: %v", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("error syncing work file: %v", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing work file: %v", err)
	}
	if err := os.Rename(s.WorkPath, s.Path); err != nil {
		return fmt.Errorf("error renaming work file: %v", err)
	}
	return nil
}
