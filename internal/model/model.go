// Package model defines domain entities shared by the conversation and session layers.
package model

import "time"

// Surface identifies one of the three independent conversation modes.
type Surface string

const (
	SurfaceChat  Surface = "chat"
	SurfaceViz   Surface = "viz"
	SurfaceExcel Surface = "excel"
)

// Surfaces lists every surface in render order.
var Surfaces = []Surface{SurfaceChat, SurfaceViz, SurfaceExcel}

// Valid reports whether s names a known surface.
func (s Surface) Valid() bool {
	return s == SurfaceChat || s == SurfaceViz || s == SurfaceExcel
}

// Role distinguishes who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Spreadsheet is a downloadable workbook attached to an assistant message.
type Spreadsheet struct {
	PayloadBase64 string `json:"payload_base64"`
	Filename      string `json:"filename"`
}

// Message is a single transcript entry. Immutable once appended; the
// per-surface sequence is append-only for the lifetime of the workspace.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Images holds base64-encoded raster images (viz surface only).
	Images []string `json:"images,omitempty"`
	// Spreadsheet holds a downloadable workbook payload (excel surface only).
	Spreadsheet *Spreadsheet `json:"spreadsheet,omitempty"`
}

// HistoryEntry is the bounded request-window form of a message: role and
// text only, attachments stripped.
type HistoryEntry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// User is the cached profile mirrored next to the token. It is decoration
// only; a user without a token never authenticates.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Analysis is the workspace analysis result: the join key passed to every
// conversation request plus the display summary. Created once per successful
// analyze call, replacing any prior result.
type Analysis struct {
	IndexName string `json:"index_name"`
	Summary   string `json:"summary"`
}
