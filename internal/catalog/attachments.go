package catalog

import (
	"io"

	"github.com/ledongthuc/pdf"

	appLog "esiplanner/internal/log"
)

// attachments collects files from the EmbeddedFiles name tree and from
// FileAttachment annotations. A later file with the same name replaces an
// earlier one.
func attachments(r *pdf.Reader) []Attachment {
	byName := make(map[string]int)
	var out []Attachment
	add := func(name string, spec pdf.Value) {
		data, ok := embeddedData(spec)
		if !ok {
			return
		}
		name = SanitizeName(name)
		if i, dup := byName[name]; dup {
			out[i].Data = data
			return
		}
		byName[name] = len(out)
		out = append(out, Attachment{Name: name, Data: data})
	}

	tree := r.Trailer().Key("Root").Key("Names").Key("EmbeddedFiles")
	walkNameTree(tree, add)

	for i := 1; i <= r.NumPage(); i++ {
		annots := r.Page(i).V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			annot := annots.Index(j)
			if annot.Key("Subtype").Name() != "FileAttachment" {
				continue
			}
			fs := annot.Key("FS")
			add(specName(fs), fs)
		}
	}
	return out
}

// walkNameTree visits the leaves of a PDF name tree: Names holds
// alternating key/value pairs, Kids holds subtrees.
func walkNameTree(node pdf.Value, visit func(string, pdf.Value)) {
	if node.IsNull() {
		return
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		visit(names.Index(i).Text(), names.Index(i+1))
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		walkNameTree(kids.Index(i), visit)
	}
}

func specName(fs pdf.Value) string {
	if uf := fs.Key("UF"); !uf.IsNull() {
		return uf.Text()
	}
	return fs.Key("F").Text()
}

func embeddedData(spec pdf.Value) ([]byte, bool) {
	stream := spec.Key("EF").Key("F")
	if stream.Kind() != pdf.Stream {
		return nil, false
	}
	rc := stream.Reader()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		appLog.Error("catalog attachment read failed", err)
		return nil, false
	}
	return data, true
}
