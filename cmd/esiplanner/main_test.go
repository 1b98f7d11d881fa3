package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"esiplanner/internal/ics"
	"esiplanner/internal/output"
	"esiplanner/internal/pipeline"
)

func reportResult() *pipeline.Result {
	start := time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC)
	session := output.NewSession(start)
	session.Record(output.CollectionSubjects, "21714002.json")
	session.Record(output.CollectionSubjects, "21714001.json")
	session.Record(output.CollectionDegrees, "G35.json")
	return &pipeline.Result{
		SourceErrors: []*ics.SourceError{{Name: "broken.ics", Err: ics.ErrMissingTime}},
		Session:      session,
		FinishedAt:   start.Add(time.Second),
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	writeReport(&buf, reportResult(), false)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "run "))
	assert.Contains(t, out, "skipped broken.ics: ics: missing DTSTART/DTEND")
	assert.NotContains(t, out, "wrote")
}

func TestWriteReportListsFiles(t *testing.T) {
	var buf bytes.Buffer
	writeReport(&buf, reportResult(), true)

	out := buf.String()
	assert.Contains(t, out, "  wrote subjects/21714001.json\n  wrote subjects/21714002.json\n  wrote degrees/G35.json\n")
}
