package main

import (
	"strings"
	"testing"
	"time"

	"github.com/nvoskan/equiterm/internal/model"
)

func TestSummaryBanner(t *testing.T) {
	t.Parallel()
	got := summaryBanner("Revenue grew 12%.")
	if !strings.HasPrefix(got, "Analysis Complete.") {
		t.Fatalf("banner = %q", got)
	}
	if !strings.Contains(got, "Here is the summary:\nRevenue grew 12%.") {
		t.Fatalf("banner = %q", got)
	}
}

func TestImageFilename(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := imageFilename(at, 0); got != "viz_20260314_092653_1.png" {
		t.Fatalf("imageFilename = %q", got)
	}
}

func TestRenderMessage_Attachments(t *testing.T) {
	t.Parallel()
	m := model.Message{
		Role:      model.RoleAssistant,
		Text:      "Here you go.",
		CreatedAt: time.Now(),
		Images:    []string{"aGk=", "aGk="},
		Spreadsheet: &model.Spreadsheet{
			PayloadBase64: "aGk=",
			Filename:      "analysis.xlsx",
		},
	}
	out := renderMessage(m)
	if !strings.Contains(out, "Here you go.") {
		t.Fatalf("missing body: %q", out)
	}
	if !strings.Contains(out, "2 image(s) attached") {
		t.Fatalf("missing image note: %q", out)
	}
	if !strings.Contains(out, "analysis.xlsx") {
		t.Fatalf("missing workbook note: %q", out)
	}
}

func TestRenderTranscript_ChatLeadsWithSummary(t *testing.T) {
	t.Parallel()
	analysis := &model.Analysis{IndexName: "acme-q2", Summary: "Solid quarter."}

	out := renderTranscript(model.SurfaceChat, nil, analysis)
	if !strings.Contains(out, "Solid quarter.") {
		t.Fatalf("chat transcript lacks summary: %q", out)
	}

	out = renderTranscript(model.SurfaceViz, nil, analysis)
	if strings.Contains(out, "Solid quarter.") {
		t.Fatalf("viz transcript should not carry summary: %q", out)
	}
	if !strings.Contains(out, "(no messages)") {
		t.Fatalf("empty transcript marker missing: %q", out)
	}
}
