// Package output writes the pipeline's documents to disk, one JSON file
// per subject and per degree plus a single mapping document.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"esiplanner/internal/config"
	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

const mappingFile = "mapping.json"

// Writer writes documents under a base directory.
type Writer struct {
	dir     string
	session *Session
}

func NewWriter(dir string, session *Session) *Writer {
	return &Writer{dir: dir, session: session}
}

// Reset removes previously written subject and degree documents so a run
// replaces the collections instead of adding to them.
func (w *Writer) Reset() error {
	for _, c := range []string{CollectionSubjects, CollectionDegrees} {
		if err := os.RemoveAll(filepath.Join(w.dir, c)); err != nil {
			return fmt.Errorf("output: reset %s: %w", c, err)
		}
	}
	return nil
}

// WriteSubjects writes <dir>/subjects/<code>.json for every subject.
func (w *Writer) WriteSubjects(reg *model.Registry) error {
	for _, s := range reg.Subjects() {
		if err := w.write(CollectionSubjects, DocumentName(s.Code), s); err != nil {
			return err
		}
	}
	appLog.Info("subjects written", "count", reg.Len(), "dir", filepath.Join(w.dir, CollectionSubjects))
	return nil
}

// WriteDegrees writes <dir>/degrees/<code>.json for every degree.
func (w *Writer) WriteDegrees(degrees []model.Degree) error {
	for i := range degrees {
		if err := w.write(CollectionDegrees, DocumentName(degrees[i].Code), &degrees[i]); err != nil {
			return err
		}
	}
	appLog.Info("degrees written", "count", len(degrees), "dir", filepath.Join(w.dir, CollectionDegrees))
	return nil
}

// WriteMapping writes <dir>/mapping.json.
func (w *Writer) WriteMapping(doc model.MappingDocument) error {
	return w.write("", mappingFile, doc)
}

func (w *Writer) write(collection, name string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("output: encode %s: %w", name, err)
	}
	path := filepath.Join(w.dir, collection, name)
	if err := config.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if w.session != nil {
		c := collection
		if c == "" {
			c = CollectionMapping
		}
		w.session.Record(c, name)
	}
	return nil
}

var separators = strings.NewReplacer("/", "_", `\`, "_")

// DocumentName returns the file name for a document code. Codes come from
// calendar UIDs, so path separators are replaced to keep every document
// directly inside its collection.
func DocumentName(code string) string {
	return separators.Replace(code) + ".json"
}

// Marshal encodes v as indented JSON without HTML escaping, so accented
// names stay readable.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
