// Package surface runs the per-tab ask/respond cycle: an optimistic user
// append, one outstanding backend request per surface, and a settlement that
// either appends the assistant reply or a fixed-text failure message. A
// failure never propagates to the caller as an error.
package surface

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/nvoskan/equiterm/internal/backend"
	"github.com/nvoskan/equiterm/internal/convstore"
	"github.com/nvoskan/equiterm/internal/model"
	"go.uber.org/zap"
)

// FailureText is the synthetic assistant reply appended when a request
// fails; the raw error never reaches the transcript.
const FailureText = "Error: Could not fetch result. Please try again."

// HistoryWindow bounds the conversation history sent with each request so
// request bodies do not grow with the transcript.
const HistoryWindow = 10

// DefaultExcelFilename is used when the backend returns a workbook without
// a name.
const DefaultExcelFilename = "analysis.xlsx"

// Backend is the subset of backend operations a surface dispatches to.
type Backend interface {
	Ask(ctx context.Context, indexName, question string, history []model.HistoryEntry) (string, error)
	Visuals(ctx context.Context, index, query string, history []model.HistoryEntry) (*backend.VisualsResponse, error)
	Excel(ctx context.Context, index, query string, history []model.HistoryEntry) (*backend.ExcelResponse, error)
}

// Runner multiplexes the three surfaces against one shared workspace. Each
// surface is either Idle or Awaiting; submitting while Awaiting is a no-op.
// Different surfaces may be Awaiting simultaneously.
type Runner struct {
	store *convstore.Store
	api   Backend
	log   *zap.Logger

	mu       sync.Mutex
	awaiting map[model.Surface]bool
}

// New returns a runner over store and api.
func New(store *convstore.Store, api Backend, log *zap.Logger) *Runner {
	return &Runner{
		store:    store,
		api:      api,
		log:      log,
		awaiting: make(map[model.Surface]bool),
	}
}

// Awaiting reports whether s has an outstanding request.
func (r *Runner) Awaiting(s model.Surface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.awaiting[s]
}

// Submit runs one ask/respond cycle on s. It returns the appended assistant
// message and true on settlement, or nil and false when the submit was
// ignored: blank question, no workspace, a request already outstanding on s,
// or a settlement dropped because the workspace changed underneath it.
func (r *Runner) Submit(ctx context.Context, s model.Surface, question string) (*model.Message, bool) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, false
	}
	analysis := r.store.Analysis()
	if analysis == nil {
		r.log.Warn("submit without an analyzed workspace", zap.String("surface", string(s)))
		return nil, false
	}

	r.mu.Lock()
	if r.awaiting[s] {
		r.mu.Unlock()
		return nil, false
	}
	r.awaiting[s] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.awaiting[s] = false
		r.mu.Unlock()
	}()

	// Snapshot before the optimistic append: the window holds prior
	// messages only, and the generation pins the workspace this request
	// belongs to.
	gen := r.store.Generation()
	history := r.store.History(s, HistoryWindow)

	r.store.AppendIfCurrent(gen, s, model.Message{
		ID:        newID(),
		Role:      model.RoleUser,
		Text:      q,
		CreatedAt: time.Now(),
	})

	reply := r.dispatch(ctx, s, analysis.IndexName, q, history)
	if !r.store.AppendIfCurrent(gen, s, reply) {
		r.log.Debug("settlement dropped, workspace changed",
			zap.String("surface", string(s)))
		return nil, false
	}
	return &reply, true
}

// dispatch issues the surface-appropriate backend call and shapes the
// assistant reply. It never fails: errors become the fixed failure message.
func (r *Runner) dispatch(ctx context.Context, s model.Surface, index, q string, history []model.HistoryEntry) model.Message {
	reply := model.Message{
		ID:        newID(),
		Role:      model.RoleAssistant,
		CreatedAt: time.Now(),
	}

	switch s {
	case model.SurfaceViz:
		resp, err := r.api.Visuals(ctx, index, q, history)
		if err != nil {
			return r.failure(s, err, reply)
		}
		reply.Text = resp.Message
		if resp.ResponseType != backend.ResponseTypeChat {
			reply.Images = resp.Images
			if reply.Text == "" {
				reply.Text = fmt.Sprintf("Generated %s: %s", resp.VisualizationType, resp.Task)
			}
		}

	case model.SurfaceExcel:
		resp, err := r.api.Excel(ctx, index, q, history)
		if err != nil {
			return r.failure(s, err, reply)
		}
		reply.Text = resp.Message
		if resp.ResponseType != backend.ResponseTypeChat && resp.FileBase64 != "" {
			name := resp.Filename
			if name == "" {
				name = DefaultExcelFilename
			}
			reply.Spreadsheet = &model.Spreadsheet{
				PayloadBase64: resp.FileBase64,
				Filename:      name,
			}
		}

	default:
		answer, err := r.api.Ask(ctx, index, q, history)
		if err != nil {
			return r.failure(s, err, reply)
		}
		reply.Text = answer
	}
	return reply
}

func (r *Runner) failure(s model.Surface, err error, reply model.Message) model.Message {
	r.log.Warn("surface request failed",
		zap.String("surface", string(s)),
		zap.Error(err))
	reply.Text = FailureText
	reply.Images = nil
	reply.Spreadsheet = nil
	return reply
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to a timestamp-derived id; uniqueness within a
		// transcript is all that matters.
		return fmt.Sprintf("msg-%d", time.Now().UnixNano())
	}
	return id.String()
}
