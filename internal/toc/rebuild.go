package toc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// FileName is the cache file written by Rebuild inside the data directory.
const FileName = "toc.json"

// document is the on-disk form of the cache.
type document struct {
	Tree   []*Node `json:"tree"`
	Report Report  `json:"report"`
}

// Rebuild builds the tree from src and writes it to toc.json in dataDir.
// The file is replaced atomically.
func Rebuild(src types.TableSource, dataDir string) (*Tree, error) {
	t, err := Build(src)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(document{Tree: t.Root.Children, Report: t.Report()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding toc: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dataDir, FileName), append(data, '\n')); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads a cache written by Rebuild and returns its top-level nodes.
func Load(dataDir string) ([]*Node, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if err != nil {
		return nil, fmt.Errorf("reading toc: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding toc: %w", err)
	}
	return doc.Tree, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".toc-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing toc: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing toc: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing toc: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming toc: %w", err)
	}
	return nil
}
