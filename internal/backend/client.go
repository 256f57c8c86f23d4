// Package backend provides typed operations on the research backend API.
// Every call goes through the gateway; this layer only knows payload shapes.
package backend

import (
	"context"
	"fmt"

	"github.com/nvoskan/equiterm/internal/errs"
	"github.com/nvoskan/equiterm/internal/gateway"
	"github.com/nvoskan/equiterm/internal/model"
)

// ResponseTypeChat marks a viz/excel reply that carries text only, no
// generated artifact.
const ResponseTypeChat = "chat"

// Client wraps the gateway with the backend's endpoint contracts.
type Client struct {
	gw *gateway.Gateway
}

// New returns a backend client over gw.
func New(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// LoginResponse is the credential record issued on successful login or OTP
// verification.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges an identifier/password pair for a token and profile.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	req := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{identifier, password}
	var resp LoginResponse
	if err := c.gw.PostJSON(ctx, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register starts the signup flow; the backend mails an OTP to email.
// Success is the 2xx status itself, no body fields are consumed.
func (c *Client) Register(ctx context.Context, username, email string) error {
	req := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}{username, email}
	return c.gw.PostJSON(ctx, "/register", req, nil)
}

// VerifyOTP completes signup: the emailed code plus the chosen password
// yield the first credential record.
func (c *Client) VerifyOTP(ctx context.Context, email, otp, password string) (*LoginResponse, error) {
	req := struct {
		Email    string `json:"email"`
		OTP      string `json:"otp"`
		Password string `json:"password"`
	}{email, otp, password}
	var resp LoginResponse
	if err := c.gw.PostJSON(ctx, "/verify-otp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze submits source URLs for scraping and indexing. A 2xx response with
// success=false is surfaced as ErrBackendRejected.
func (c *Client) Analyze(ctx context.Context, urls []string) (*model.Analysis, error) {
	req := struct {
		URLs []string `json:"urls"`
	}{urls}
	var resp struct {
		Success   bool   `json:"success"`
		IndexName string `json:"index_name"`
		Summary   string `json:"summary"`
	}
	if err := c.gw.PostJSON(ctx, "/analyze", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("analyze: %w", errs.ErrBackendRejected)
	}
	return &model.Analysis{IndexName: resp.IndexName, Summary: resp.Summary}, nil
}

// Ask poses a question against an analyzed index and returns the answer text.
func (c *Client) Ask(ctx context.Context, indexName, question string, history []model.HistoryEntry) (string, error) {
	req := struct {
		IndexName string               `json:"index_name"`
		Question  string               `json:"question"`
		History   []model.HistoryEntry `json:"history"`
	}{indexName, question, nonNil(history)}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.gw.PostJSON(ctx, "/ask", req, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// VisualsResponse is the discriminated chart-generation reply: either a
// chat-style message or a message plus rendered images.
type VisualsResponse struct {
	ResponseType      string   `json:"response_type"`
	Message           string   `json:"message"`
	VisualizationType string   `json:"visualization_type"`
	Task              string   `json:"task"`
	Images            []string `json:"images"`
}

// Visuals requests chart generation for query against an analyzed index.
func (c *Client) Visuals(ctx context.Context, index, query string, history []model.HistoryEntry) (*VisualsResponse, error) {
	req := struct {
		Index   string               `json:"index"`
		Query   string               `json:"query"`
		History []model.HistoryEntry `json:"history"`
	}{index, query, nonNil(history)}
	var resp VisualsResponse
	if err := c.gw.PostJSON(ctx, "/visuals", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExcelResponse is the discriminated export reply: either a chat-style
// message or a message plus a downloadable workbook.
type ExcelResponse struct {
	ResponseType string `json:"response_type"`
	Message      string `json:"message"`
	FileBase64   string `json:"file_base64"`
	Filename     string `json:"filename"`
}

// Excel requests a spreadsheet export for query against an analyzed index.
func (c *Client) Excel(ctx context.Context, index, query string, history []model.HistoryEntry) (*ExcelResponse, error) {
	req := struct {
		Index   string               `json:"index"`
		Query   string               `json:"query"`
		History []model.HistoryEntry `json:"history"`
	}{index, query, nonNil(history)}
	var resp ExcelResponse
	if err := c.gw.PostJSON(ctx, "/excel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// nonNil keeps the history field a JSON array, never null.
func nonNil(h []model.HistoryEntry) []model.HistoryEntry {
	if h == nil {
		return []model.HistoryEntry{}
	}
	return h
}
