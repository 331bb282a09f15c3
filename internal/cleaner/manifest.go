package cleaner

import (
	"fmt"
	"os"
	"time"
)

// RemovalManifest keeps track of removed duplicates
type RemovalManifest struct {
	Files     []RemovedFileInfo
	Timestamp time.Time
	TotalSize int64
}

// RemovedFileInfo represents one removed duplicate
type RemovedFileInfo struct {
	Removal
	RemovedAt time.Time
}

// NewRemovalManifest creates a new RemovalManifest
func NewRemovalManifest() *RemovalManifest {
	return &RemovalManifest{
		Files:     []RemovedFileInfo{},
		Timestamp: time.Now(),
	}
}

// Add adds a removal to the manifest
func (m *RemovalManifest) Add(removal Removal) {
	m.Files = append(m.Files, RemovedFileInfo{
		Removal:   removal,
		RemovedAt: time.Now(),
	})
	m.TotalSize += removal.Size
}

// Save saves the manifest to a file
func (m *RemovalManifest) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "Removal Manifest\n")
	fmt.Fprintf(file, "Created: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(file, "Total Size: %d bytes\n", m.TotalSize)
	fmt.Fprintf(file, "Total Files: %d\n\n", len(m.Files))

	for _, f := range m.Files {
		target := f.Target
		if target == "" {
			target = "(deleted)"
		}
		fmt.Fprintf(file, "%s | %s | %d bytes | kept %s | %s | %s\n",
			f.Path, target, f.Size, f.Survivor, f.Fingerprint, f.RemovedAt.Format(time.RFC3339))
	}

	return file.Sync()
}
