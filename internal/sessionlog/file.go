package sessionlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abhisek/mathadapt/internal/schema"
)

// Decode validates and decodes a log file document. Sessions are normalized.
func Decode(raw []byte) ([]Session, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if err := schema.Validate(LogFileSchema, raw); err != nil {
		return nil, err
	}
	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("decode session log: %w", err)
	}
	for i := range sessions {
		sessions[i].Normalize()
	}
	return sessions, nil
}

// ReadFile reads all sessions from a JSON log file. A missing file yields no
// sessions and no error.
func ReadFile(path string) ([]Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session log: %w", err)
	}
	sessions, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sessions, nil
}

// AppendFile appends s to the log file at path, creating it if needed.
// The file is rewritten atomically.
func AppendFile(path string, s Session) error {
	sessions, err := ReadFile(path)
	if err != nil {
		return err
	}
	sessions = append(sessions, s)

	b, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session log: %w", err)
	}
	return nil
}
