package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esiplanner/internal/model"
)

func TestExtractDegreeName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Escuela Superior de Ingeniería\nGrado en Ingeniería Informática \nCurso 2024-25", "Ingeniería Informática"},
		{"Horarios\nGrado en Ingeniería Aeroespacial", "Ingeniería Aeroespacial"},
		{"Máster en Ingeniería Industrial", UnknownDegree},
		{"", UnknownDegree},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDegreeName(tt.text))
	}
}

func TestExtractSubjectCodes(t *testing.T) {
	pages := []string{
		"Cálculo - 21714001 Grupo 1\nFísica - 21714002",
		"Cálculo - 21714001\nÁlgebra - 21714003\nAula 1-21714009\nRef - 123",
	}
	assert.Equal(t, []string{"21714001", "21714002", "21714003"}, ExtractSubjectCodes(pages))
	assert.Empty(t, ExtractSubjectCodes(nil))
}

func TestNewDegree(t *testing.T) {
	d := NewDegree("/data/archivos_pdf/G35.pdf", []string{
		"Grado en Ingeniería Informática\nCálculo - 21714001",
		"Redes - 21714050",
	})
	assert.Equal(t, model.Degree{
		Code: "G35",
		Name: "Ingeniería Informática",
		Subjects: []model.SubjectRef{
			{Code: "21714001"},
			{Code: "21714050"},
		},
	}, d)

	empty := NewDegree("G00.pdf", nil)
	assert.Equal(t, UnknownDegree, empty.Name)
	assert.NotNil(t, empty.Subjects)
}

func TestSaveAttachments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archivos_adjuntos")
	names, err := SaveAttachments(dir, []Attachment{
		{Name: "G35/primero.ics", Data: []byte("BEGIN:VCALENDAR")},
		{Name: "segundo.ics", Data: []byte("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"G35_primero.ics", "segundo.ics"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "G35_primero.ics"))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))
}

func TestReadRejectsNonPDF(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o600))

	cats, errs := ReadDir(dir)
	assert.Empty(t, cats)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken.pdf")

	_, errs = ReadDir(filepath.Join(dir, "nope"))
	assert.Len(t, errs, 1)
}
