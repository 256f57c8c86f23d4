package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nvoskan/equiterm/internal/config"
	"github.com/nvoskan/equiterm/internal/errs"
	"github.com/nvoskan/equiterm/internal/gateway"
	"github.com/nvoskan/equiterm/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noCreds struct{}

func (noCreds) Token() string { return "" }
func (noCreds) Clear()        {}

// newClient spins up a fake backend returning respBody for every request and
// captures the last request body and path.
func newClient(t *testing.T, status int, respBody string) (*Client, *map[string]any, *string) {
	t.Helper()
	lastBody := map[string]any{}
	lastPath := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath = r.URL.Path
		lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&lastBody)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	gw := gateway.New(&config.Config{BaseURL: srv.URL, APITimeout: 5 * time.Second}, noCreds{}, zap.NewNop())
	return New(gw), &lastBody, &lastPath
}

func TestLogin(t *testing.T) {
	t.Parallel()
	c, body, path := newClient(t, http.StatusOK, `{"token":"eyJx","user":{"username":"a"}}`)

	resp, err := c.Login(context.Background(), "a@b.com", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "/login", *path)
	require.Equal(t, "a@b.com", (*body)["identifier"])
	require.Equal(t, "Secret123", (*body)["password"])
	require.Equal(t, "eyJx", resp.Token)
	require.Equal(t, "a", resp.User.Username)
}

func TestRegisterAndVerifyOTP(t *testing.T) {
	t.Parallel()
	c, body, path := newClient(t, http.StatusOK, `{"token":"t2","user":{"username":"a","email":"a@b.com"}}`)

	require.NoError(t, c.Register(context.Background(), "alice", "a@b.com"))
	require.Equal(t, "/register", *path)
	require.Equal(t, "alice", (*body)["username"])

	resp, err := c.VerifyOTP(context.Background(), "a@b.com", "123456", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "/verify-otp", *path)
	require.Equal(t, "123456", (*body)["otp"])
	require.Equal(t, "t2", resp.Token)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	c, body, _ := newClient(t, http.StatusOK, `{"success":true,"index_name":"idx1","summary":"S"}`)

	a, err := c.Analyze(context.Background(), []string{"https://x.com/a"})
	require.NoError(t, err)
	require.Equal(t, &model.Analysis{IndexName: "idx1", Summary: "S"}, a)
	require.Equal(t, []any{"https://x.com/a"}, (*body)["urls"])
}

func TestAnalyze_BackendRejected(t *testing.T) {
	t.Parallel()
	c, _, _ := newClient(t, http.StatusOK, `{"success":false}`)

	_, err := c.Analyze(context.Background(), []string{"https://x.com/a"})
	require.ErrorIs(t, err, errs.ErrBackendRejected)
}

func TestAsk_SendsBoundedHistoryShape(t *testing.T) {
	t.Parallel()
	c, body, _ := newClient(t, http.StatusOK, `{"answer":"Y"}`)

	hist := []model.HistoryEntry{{Role: model.RoleUser, Text: "earlier"}}
	answer, err := c.Ask(context.Background(), "idx1", "What is X?", hist)
	require.NoError(t, err)
	require.Equal(t, "Y", answer)
	require.Equal(t, "idx1", (*body)["index_name"])
	require.Equal(t, "What is X?", (*body)["question"])
	require.Len(t, (*body)["history"], 1)
}

func TestAsk_NilHistoryEncodesAsEmptyArray(t *testing.T) {
	t.Parallel()
	c, body, _ := newClient(t, http.StatusOK, `{"answer":"Y"}`)

	_, err := c.Ask(context.Background(), "idx1", "q", nil)
	require.NoError(t, err)
	require.NotNil(t, (*body)["history"])
	require.Empty(t, (*body)["history"])
}

func TestVisuals(t *testing.T) {
	t.Parallel()
	c, body, path := newClient(t, http.StatusOK,
		`{"response_type":"visualization","message":"done","visualization_type":"bar chart","task":"revenue by year","images":["aGk="]}`)

	resp, err := c.Visuals(context.Background(), "idx1", "plot revenue", nil)
	require.NoError(t, err)
	require.Equal(t, "/visuals", *path)
	require.Equal(t, "idx1", (*body)["index"])
	require.Equal(t, "plot revenue", (*body)["query"])
	require.Equal(t, "visualization", resp.ResponseType)
	require.Equal(t, []string{"aGk="}, resp.Images)
}

func TestExcel_ChatStyleReply(t *testing.T) {
	t.Parallel()
	c, _, _ := newClient(t, http.StatusOK, `{"response_type":"chat","message":"Not enough data"}`)

	resp, err := c.Excel(context.Background(), "idx1", "export", nil)
	require.NoError(t, err)
	require.Equal(t, ResponseTypeChat, resp.ResponseType)
	require.Empty(t, resp.FileBase64)
}

func TestErrorsPassThroughUnchanged(t *testing.T) {
	t.Parallel()
	c, _, _ := newClient(t, http.StatusServiceUnavailable, `{"detail":"warming up"}`)

	_, err := c.Ask(context.Background(), "idx1", "q", nil)
	require.ErrorIs(t, err, errs.ErrServer)
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "warming up", apiErr.Message)
}
