// Package jsonfile writes pretty-printed JSON files atomically.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

// Marshal encodes v as JSON indented with two spaces, without the trailing
// newline json.Encoder would add.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	// Commit messages and work item descriptions are full of '<', '>' and '&'.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write encodes v (see Marshal) and writes it to path. The file is written to
// a temporary file in the same directory first and then renamed over path, so
// an interrupted run never leaves a truncated file behind.
// Returns the data that was written.
func Write(path string, v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to encode %s", path)
	}
	if err := WriteBytes(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

func WriteBytes(path string, data []byte) (reterr error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIff(err, "failed to write %s", path)
	}
	tmp := f.Name()
	defer func() {
		if reterr != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.WrapIff(err, "failed to write %s", path)
	}
	if err := f.Chmod(0644); err != nil {
		return errors.WrapIff(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIff(err, "failed to write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapIff(err, "failed to write %s", path)
	}
	return nil
}

// Read decodes the JSON file at path into v.
// It reports false (and no error) if the file does not exist.
func Read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.WrapIff(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, errors.WrapIff(err, "failed to parse %s", path)
	}
	return true, nil
}

// Exists reports whether path exists. Errors other than "does not exist"
// (e.g., permission problems) are treated as existing so that callers err on
// the side of not overwriting.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
