package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zkceremony/sequencer/ceremony"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return &FileStore{
		Path:     filepath.Join(dir, "transcript.json"),
		WorkPath: filepath.Join(dir, "transcript.json.next"),
	}
}

var testSizes = []ceremony.ShardSize{{NumG1: 4, NumG2: 2}, {NumG1: 8, NumG2: 4}}

func TestLoadOrCreateFresh(t *testing.T) {
	s := testStore(t)
	b, err := s.LoadOrCreate(testSizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Transcripts) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(b.Transcripts))
	}
	if !reflect.DeepEqual(b.Sizes(), testSizes) {
		t.Errorf("fresh batch sizes = %v, want %v", b.Sizes(), testSizes)
	}
	if _, err := os.Stat(s.Path); !os.IsNotExist(err) {
		t.Errorf("LoadOrCreate must not write the file")
	}
}

func TestSaveAndReload(t *testing.T) {
	s := testStore(t)
	b, err := s.LoadOrCreate(testSizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.ParticipantIDs = append(b.ParticipantIDs, "eth|0x1234")

	if err := s.Save(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(s.WorkPath); !os.IsNotExist(err) {
		t.Errorf("work file left behind after save")
	}

	back, err := s.LoadOrCreate(testSizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(back, b) {
		t.Errorf("reloaded batch differs from saved one")
	}
}

func TestLoadRejectsSizeMismatch(t *testing.T) {
	s := testStore(t)
	b, err := s.LoadOrCreate(testSizes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.LoadOrCreate([]ceremony.ShardSize{{NumG1: 4, NumG2: 2}}); err == nil {
		t.Errorf("expected error for shard count mismatch")
	}
	other := []ceremony.ShardSize{{NumG1: 4, NumG2: 2}, {NumG1: 16, NumG2: 4}}
	if _, err := s.LoadOrCreate(other); err == nil {
		t.Errorf("expected error for shard size mismatch")
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.LoadOrCreate(testSizes); err == nil {
		t.Errorf("expected error for corrupt file")
	}
}
