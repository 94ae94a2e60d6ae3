package annotation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AdjudicatedName returns the file name recording that annotatorID's
// response was accepted for an instance: <annotator>,<guid>.<frame>.json.
func AdjudicatedName(annotatorID, guid, frame string) string {
	return annotatorID + "," + InstanceID(guid, frame) + ".json"
}

// IsAdjudicated reports whether any file in the adjudicated directory has
// <guid>.<frame>.json as its comma-separated suffix. A missing directory
// means nothing has been adjudicated yet.
func (s *Store) IsAdjudicated(guid, frame string) (bool, error) {
	entries, err := os.ReadDir(s.layout.AdjudicatedDir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("list adjudicated: %w", err)
	}

	want := InstanceID(guid, frame) + ".json"
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if i := strings.LastIndexByte(name, ','); i >= 0 {
			name = name[i+1:]
		}
		if name == want {
			return true, nil
		}
	}
	return false, nil
}

// Adjudicate copies annotatorID's response into the adjudicated directory.
// It does not consult IsAdjudicated; a second call overwrites the copy with
// identical content. Two processes checking and then adjudicating the same
// instance can both succeed.
func (s *Store) Adjudicate(annotatorID, guid, frame string) error {
	if err := ValidateComponent("annotator", annotatorID); err != nil {
		return err
	}
	if err := validateInstance(guid, frame); err != nil {
		return err
	}

	data, err := os.ReadFile(s.AnnotationPath(annotatorID, guid, frame))
	if err != nil {
		return fmt.Errorf("read annotation: %w", err)
	}
	if err := os.MkdirAll(s.layout.AdjudicatedDir, 0755); err != nil {
		return fmt.Errorf("create adjudicated directory: %w", err)
	}

	dst := filepath.Join(s.layout.AdjudicatedDir, AdjudicatedName(annotatorID, guid, frame))
	if err := writeFileAtomic(dst, data); err != nil {
		return fmt.Errorf("write adjudication: %w", err)
	}
	return nil
}

// ReplaceAnnotation overwrites targetID's response with sourceID's. The
// target's previous bytes are written to backupPath first; if that fails the
// target is left untouched. This mutates upstream annotation data and must
// only run on explicit request.
func (s *Store) ReplaceAnnotation(sourceID, targetID, guid, frame, backupPath string) error {
	if err := ValidateComponent("annotator", sourceID); err != nil {
		return err
	}
	if err := ValidateComponent("annotator", targetID); err != nil {
		return err
	}
	if sourceID == targetID {
		return ErrSameAnnotator
	}
	if err := validateInstance(guid, frame); err != nil {
		return err
	}

	src, err := os.ReadFile(s.AnnotationPath(sourceID, guid, frame))
	if err != nil {
		return fmt.Errorf("read source annotation: %w", err)
	}
	targetPath := s.AnnotationPath(targetID, guid, frame)
	prev, err := os.ReadFile(targetPath)
	if err != nil {
		return fmt.Errorf("read target annotation: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if err := writeFileAtomic(backupPath, prev); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := writeFileAtomic(targetPath, src); err != nil {
		return fmt.Errorf("overwrite target annotation: %w", err)
	}
	return nil
}

// RestoreAnnotation writes a backup taken by ReplaceAnnotation back over
// targetID's response.
func (s *Store) RestoreAnnotation(targetID, guid, frame, backupPath string) error {
	if err := ValidateComponent("annotator", targetID); err != nil {
		return err
	}
	if err := validateInstance(guid, frame); err != nil {
		return err
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := writeFileAtomic(s.AnnotationPath(targetID, guid, frame), data); err != nil {
		return fmt.Errorf("restore annotation: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rfbviz-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
