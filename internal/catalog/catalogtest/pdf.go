// Package catalogtest builds small catalog PDFs for tests: one page of
// plain text plus calendar files embedded through the EmbeddedFiles name
// tree or FileAttachment annotations.
package catalogtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// File is an embedded file.
type File struct {
	Name string
	Data string
}

// PDF returns an uncompressed PDF whose single page shows text, one line
// per text line. Fonts are not embedded, so text must be ASCII.
func PDF(text string, embedded, annotated []File) []byte {
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}
	// Fixed numbers: 1 catalog, 2 pages, 3 page, 4 contents, 5 names.
	objs = make([]string, 5)

	var names []string
	for _, f := range embedded {
		data := add(stream("/Type /EmbeddedFile", f.Data))
		spec := add(fmt.Sprintf("<< /Type /Filespec /F %s /UF %s /EF << /F %d 0 R >> >>",
			literal(f.Name), literal(f.Name), data))
		names = append(names, fmt.Sprintf("%s %d 0 R", literal(f.Name), spec))
	}
	var annots []string
	for _, f := range annotated {
		data := add(stream("/Type /EmbeddedFile", f.Data))
		annot := add(fmt.Sprintf("<< /Type /Annot /Subtype /FileAttachment /Rect [0 0 16 16] "+
			"/FS << /Type /Filespec /F %s /EF << /F %d 0 R >> >> >>", literal(f.Name), data))
		annots = append(annots, fmt.Sprintf("%d 0 R", annot))
	}

	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n")
	for _, line := range strings.Split(text, "\n") {
		content.WriteString(literal(line) + " Tj\nT*\n")
	}
	content.WriteString("ET")

	objs[0] = "<< /Type /Catalog /Pages 2 0 R /Names << /EmbeddedFiles 5 0 R >> >>"
	objs[1] = "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"
	objs[2] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Annots [%s] >>",
		strings.Join(annots, " "))
	objs[3] = stream("", content.String())
	objs[4] = fmt.Sprintf("<< /Names [%s] >>", strings.Join(names, " "))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

// WritePDF writes PDF(...) to dir/name and returns the path.
func WritePDF(t testing.TB, dir, name, text string, embedded, annotated []File) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PDF(text, embedded, annotated), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// literal renders s as a PDF string literal.
func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}
