// Package yamlfile persists flat records as a single YAML document on
// local disk.
package yamlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/perioclinic/perio-records/internal/model"
	"github.com/perioclinic/perio-records/internal/repository"
	apperrors "github.com/perioclinic/perio-records/pkg/errors"
)

type recordStore struct {
	path string
}

func NewRecordStore(path string) repository.RecordStore {
	return &recordStore{path: path}
}

func (s *recordStore) Load(ctx context.Context) ([]model.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(fmt.Sprintf("failed to read record store %s", s.path), err)
	}

	var records []model.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewStorageUnavailable(fmt.Sprintf("failed to parse record store %s", s.path), err)
	}
	return records, nil
}

// Save writes the full record list to a temp file in the same
// directory and renames it over the store, so a failed write never
// truncates existing data.
func (s *recordStore) Save(ctx context.Context, records []model.Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return apperrors.NewStorageUnavailable("failed to encode records", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageUnavailable("failed to stage record store write", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageUnavailable("failed to write record store", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageUnavailable("failed to write record store", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperrors.NewStorageUnavailable("failed to replace record store", err)
	}
	return nil
}
