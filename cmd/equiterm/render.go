package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/xlsx"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true).Underline(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bodyStyle      = lipgloss.NewStyle().PaddingLeft(2)
)

// renderMessage formats one transcript message with a role label, the body
// and a note per attachment.
func renderMessage(m model.Message) string {
	label := assistantStyle.Render("assistant")
	if m.Role == model.RoleUser {
		label = userStyle.Render("you")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label, metaStyle.Render(m.CreatedAt.Local().Format("15:04:05")))
	b.WriteString(bodyStyle.Render(m.Text))
	if len(m.Images) > 0 {
		fmt.Fprintf(&b, "\n%s", metaStyle.Render(fmt.Sprintf("  [%d image(s) attached]", len(m.Images))))
	}
	if m.Spreadsheet != nil {
		fmt.Fprintf(&b, "\n%s", metaStyle.Render(fmt.Sprintf("  [workbook: %s]", m.Spreadsheet.Filename)))
	}
	return b.String()
}

// renderTranscript formats a full surface history. The chat surface leads
// with the workspace summary so the transcript reads the way the analysis
// was first presented.
func renderTranscript(s model.Surface, msgs []model.Message, analysis *model.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("— %s —", s)))
	if s == model.SurfaceChat && analysis != nil {
		fmt.Fprintf(&b, "%s %s\n%s\n", assistantStyle.Render("assistant"), metaStyle.Render("summary"),
			bodyStyle.Render(summaryBanner(analysis.Summary)))
	}
	if len(msgs) == 0 {
		b.WriteString(metaStyle.Render("  (no messages)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, m := range msgs {
		b.WriteString(renderMessage(m))
		b.WriteString("\n")
	}
	return b.String()
}

func summaryBanner(summary string) string {
	return "Analysis Complete.\n\nHere is the summary:\n" + summary
}

// imageFilename names a saved viz image by submission time and position.
func imageFilename(at time.Time, i int) string {
	return fmt.Sprintf("viz_%s_%d.png", at.Format("20060102_150405"), i+1)
}

// saveAttachments writes any images and workbook carried by a reply into
// the downloads directory. Failures are reported but never abort the
// command; the transcript already holds the reply.
func (a *app) saveAttachments(m *model.Message) {
	if m == nil || (len(m.Images) == 0 && m.Spreadsheet == nil) {
		return
	}
	dir := a.cfg.DownloadsDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("cannot create downloads dir: "+err.Error()))
		return
	}

	for i, img := range m.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			a.log.Warn("skipping undecodable image", zap.Int("index", i), zap.Error(err))
			continue
		}
		path := filepath.Join(dir, imageFilename(m.CreatedAt, i))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("cannot save image: "+err.Error()))
			continue
		}
		fmt.Println(metaStyle.Render("saved " + path))
	}

	if m.Spreadsheet != nil {
		data, err := xlsx.Decode(m.Spreadsheet.PayloadBase64)
		if err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("workbook payload is not valid base64: "+err.Error()))
			return
		}
		sum, err := xlsx.Inspect(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("workbook payload is corrupt, not saving: "+err.Error()))
			return
		}
		path := filepath.Join(dir, filepath.Base(m.Spreadsheet.Filename))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("cannot save workbook: "+err.Error()))
			return
		}
		fmt.Println(metaStyle.Render("saved " + path))
		for _, sh := range sum.Sheets {
			fmt.Println(metaStyle.Render(fmt.Sprintf("  sheet %q: %d rows x %d cols", sh.Name, sh.Rows, sh.Cols)))
		}
	}
}
