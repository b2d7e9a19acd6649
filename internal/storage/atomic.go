package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"valutatrade/internal/domain"
)

// WriteJSONAtomic persists v as indented JSON using the
// temp-file-then-rename protocol: the file at path always contains
// either the prior complete document or the new one, never a mixture.
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.PersistenceError{Path: path, Op: "mkdir", Err: err}
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &domain.PersistenceError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &domain.PersistenceError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &domain.PersistenceError{Path: path, Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &domain.PersistenceError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// ReadJSON loads the JSON document at path into v. The first return
// value reports whether the file existed.
func ReadJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &domain.PersistenceError{Path: path, Op: "read", Err: err}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, &domain.PersistenceError{Path: path, Op: "decode", Err: err}
	}
	return true, nil
}
