package storage

import (
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"todo-api/domain"
)

// snapshot is the complete durable state: the task collection plus the
// next-identifier counter.
type snapshot struct {
	Tasks  []domain.Task `json:"tasks"`
	NextID int           `json:"next_id"`
}

func readSnapshot(path string) (snapshot, error) {
	var snap snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// writeSnapshot replaces the file at path atomically: write a temp file next
// to it, sync, rename over the destination, then sync the directory. A crash
// mid-write leaves the previous snapshot intact.
func writeSnapshot(path string, snap snapshot) error {
	if snap.Tasks == nil {
		snap.Tasks = []domain.Task{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(path))
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
