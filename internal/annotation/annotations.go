package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// imageIDKey is bookkeeping written by the annotation tool and hidden from
// reviewers.
const imageIDKey = "_image_id"

// AnnotationPath returns <data>/<annotator>/<guid>.<frame>.json.
func (s *Store) AnnotationPath(annotatorID, guid, frame string) string {
	return filepath.Join(s.layout.DataDir, annotatorID, InstanceID(guid, frame)+".json")
}

// ImagePath returns <images>/<guid>.<frame>.png. The file is not checked.
func (s *Store) ImagePath(guid, frame string) string {
	return filepath.Join(s.layout.ImageDir, InstanceID(guid, frame)+".png")
}

// GetAnnotation reads one annotator's response for an instance with the
// _image_id key removed. Numbers are kept as json.Number so they print the
// way the annotator wrote them.
func (s *Store) GetAnnotation(annotatorID, guid, frame string) (map[string]any, error) {
	if err := ValidateComponent("annotator", annotatorID); err != nil {
		return nil, err
	}
	if err := validateInstance(guid, frame); err != nil {
		return nil, err
	}

	path := s.AnnotationPath(annotatorID, guid, frame)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if payload == nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("annotation is not a JSON object")}
	}

	delete(payload, imageIDKey)
	return payload, nil
}
