package storage

import (
	"os"
	"path/filepath"
)

// Usage is the on-disk size of one component of the pipeline state.
type Usage struct {
	Component string `json:"component"`
	Path      string `json:"path"`
	Bytes     int64  `json:"bytes"`
}

// DiskUsage fills in the size of each entry and returns the total. An entry may be a file or a
// directory (recursively summed). Empty or missing paths count as zero.
func DiskUsage(entries []Usage) ([]Usage, int64, error) {
	var total int64
	out := make([]Usage, 0, len(entries))
	for _, e := range entries {
		n, err := pathSize(e.Path)
		if err != nil {
			return nil, 0, err
		}
		e.Bytes = n
		total += n
		out = append(out, e)
	}
	return out, total, nil
}

func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
