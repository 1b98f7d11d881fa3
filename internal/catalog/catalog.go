// Package catalog reads degree course catalogs published as PDF files: the
// degree name, the subject codes listed in it and the calendar files
// embedded as attachments.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

// UnknownDegree is used when the first page carries no "Grado en" line.
const UnknownDegree = "Desconocido"

var (
	degreeNameRe  = regexp.MustCompile(`Grado en ([^\n]+)`)
	subjectCodeRe = regexp.MustCompile(`\s-\s(\d{8})`)
)

// Attachment is a file embedded in a catalog.
type Attachment struct {
	Name string
	Data []byte
}

// Catalog is what one PDF contributes to the pipeline.
type Catalog struct {
	Path        string
	Degree      model.Degree
	Attachments []Attachment
}

// ExtractDegreeName returns the text following "Grado en" up to the end of
// the line, or UnknownDegree.
func ExtractDegreeName(firstPage string) string {
	m := degreeNameRe.FindStringSubmatch(firstPage)
	if m == nil {
		return UnknownDegree
	}
	if name := strings.TrimSpace(m[1]); name != "" {
		return name
	}
	return UnknownDegree
}

// ExtractSubjectCodes collects every " - dddddddd" code over all pages,
// deduplicated and sorted.
func ExtractSubjectCodes(pages []string) []string {
	seen := make(map[string]bool)
	for _, text := range pages {
		for _, m := range subjectCodeRe.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = true
		}
	}
	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// SanitizeName makes an attachment name safe to use as a file name.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// NewDegree builds the degree record for a catalog file.
func NewDegree(path string, pages []string) model.Degree {
	base := filepath.Base(path)
	d := model.Degree{
		Code:     strings.TrimSuffix(base, filepath.Ext(base)),
		Name:     UnknownDegree,
		Subjects: []model.SubjectRef{},
	}
	if len(pages) > 0 {
		d.Name = ExtractDegreeName(pages[0])
	}
	for _, code := range ExtractSubjectCodes(pages) {
		d.Subjects = append(d.Subjects, model.SubjectRef{Code: code})
	}
	return d
}

// Read parses one catalog PDF.
func Read(path string) (cat *Catalog, err error) {
	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}

	// The pdf package panics on some malformed object graphs.
	defer func() {
		if p := recover(); p != nil {
			cat, err = nil, fmt.Errorf("catalog: malformed pdf %s: %v", path, p)
		}
	}()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			appLog.Error("catalog page text failed", perr, "path", path, "page", i)
		}
		pages = append(pages, text)
	}

	cat = &Catalog{
		Path:        path,
		Degree:      NewDegree(path, pages),
		Attachments: attachments(r),
	}
	appLog.Info("catalog read",
		"path", path,
		"degree", cat.Degree.Code,
		"subjects", len(cat.Degree.Subjects),
		"attachments", len(cat.Attachments),
	)
	return cat, nil
}

// ReadDir reads every *.pdf directly under dir in name order. Unreadable
// files are logged and returned as errors; the rest are still read.
func ReadDir(dir string) ([]*Catalog, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("catalog: read dir: %w", err)}
	}
	var (
		cats []*Catalog
		errs []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		cat, err := Read(filepath.Join(dir, e.Name()))
		if err != nil {
			appLog.Error("catalog skipped", err, "file", e.Name())
			errs = append(errs, err)
			continue
		}
		cats = append(cats, cat)
	}
	return cats, errs
}

// SaveAttachments writes attachments under dir and returns the written
// file names.
func SaveAttachments(dir string, atts []Attachment) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: attachments dir: %w", err)
	}
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		name := SanitizeName(a.Name)
		if err := os.WriteFile(filepath.Join(dir, name), a.Data, 0o644); err != nil {
			return names, fmt.Errorf("catalog: save %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}
