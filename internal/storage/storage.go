package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage persists proof-of-action files attached to ledger entries and
// returns the stored path reference.
type Storage interface {
	Save(dir, filename string, r io.Reader) (string, error)
}

// Disk writes under a root directory. Real deployments swap in an object
// store behind the same interface.
type Disk struct {
	Root string
}

func NewDisk(root string) Disk {
	return Disk{Root: root}
}

func (d Disk) Save(dir, filename string, r io.Reader) (string, error) {
	relative := filepath.Join(dir, fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(filename)))
	full := filepath.Join(d.Root, relative)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	return relative, nil
}
