// Package file provides file-based persistence for journeys, policies and runs.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/journey/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	journeyRepo *JourneyRepository
	policyRepo  *PolicyRepository
	runRepo     *RunRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	store := &store{root: cleanRoot}

	return &Persistence{
		root:        cleanRoot,
		journeyRepo: &JourneyRepository{store: store},
		policyRepo:  &PolicyRepository{store: store},
		runRepo:     &RunRepository{store: store},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) JourneyRepository() persistence.JourneyRepository {
	return fp.journeyRepo
}

func (fp *Persistence) PolicyRepository() persistence.PolicyRepository {
	return fp.policyRepo
}

func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

// store serializes access to JSON documents grouped by collection directory.
type store struct {
	root string
	mu   sync.RWMutex
}

// validateID rejects identifiers that could escape the collection directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

func (s *store) path(collection, id string) string {
	return filepath.Join(s.root, collection, id+".json")
}

// read loads a document; found is false when it does not exist.
func (s *store) read(collection, id string, v any) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	body, err := os.ReadFile(s.path(collection, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return true, nil
}

func (s *store) write(collection, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.MkdirAll(filepath.Join(s.root, collection), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	return os.WriteFile(s.path(collection, id), data, 0600)
}

// remove deletes a document; found is false when it did not exist.
func (s *store) remove(collection, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	err := os.Remove(s.path(collection, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return true, nil
}

// ids lists the document IDs of a collection.
func (s *store) ids(collection string) ([]string, error) {
	jsonFiles, err := fs.Glob(os.DirFS(filepath.Join(s.root, collection)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
