// Package session owns the top-level authentication state: a single source
// of truth bootstrapped from the credential store, with controlled login and
// logout transitions. Other components receive auth state through this
// controller rather than reading storage ad hoc.
package session

import (
	"sync"

	"github.com/nvoskan/equiterm/internal/authtoken"
	"github.com/nvoskan/equiterm/internal/credstore"
	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/sessionmon"
	"go.uber.org/zap"
)

// WorkspaceInvalidator bumps the conversation store's generation so late
// responses never land in a logged-out workspace.
type WorkspaceInvalidator interface {
	Invalidate()
}

// Controller is the top-level session controller.
type Controller struct {
	creds *credstore.Store
	conv  WorkspaceInvalidator
	mon   *sessionmon.Monitor
	log   *zap.Logger

	mu            sync.Mutex
	authenticated bool
	user          *model.User
	cancelMon     func()
}

// New bootstraps the controller from the credential store: a present,
// unexpired token authenticates the session; the cached user is decoration.
func New(creds *credstore.Store, conv WorkspaceInvalidator, mon *sessionmon.Monitor, log *zap.Logger) *Controller {
	c := &Controller{creds: creds, conv: conv, mon: mon, log: log}

	token, user := creds.Load()
	if token != "" && !authtoken.IsExpired(token) {
		c.authenticated = true
		c.user = user
	} else if token != "" {
		// Stale leftover from a previous run; clear the pair.
		log.Info("stored token expired, clearing auth data")
		creds.Clear()
	}
	return c
}

// IsAuthenticated reports the current session state.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// User returns the cached profile, nil when unknown.
func (c *Controller) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Login records a successful authentication: the pair is persisted and the
// in-memory state flips in the same transition.
func (c *Controller) Login(token string, user *model.User) {
	c.creds.Save(token, user)
	c.mu.Lock()
	c.authenticated = true
	c.user = user
	c.mu.Unlock()
	if user != nil {
		c.log.Info("logged in", zap.String("username", user.Username))
	} else {
		c.log.Info("logged in")
	}
}

// Logout clears credentials, invalidates the workspace generation and stops
// any running inactivity monitor.
func (c *Controller) Logout() {
	c.creds.Clear()
	c.conv.Invalidate()

	c.mu.Lock()
	c.authenticated = false
	c.user = nil
	cancel := c.cancelMon
	c.cancelMon = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.log.Info("logged out")
}

// HandleAuthExpired is the gateway's auth-expiry subscription target. The
// gateway has already cleared the credentials; this transition mirrors that
// into session state.
func (c *Controller) HandleAuthExpired() {
	c.conv.Invalidate()
	c.mu.Lock()
	c.authenticated = false
	c.user = nil
	c.mu.Unlock()
	c.log.Warn("session expired")
}

// StartMonitor arms the inactivity monitor for an interactive session. On
// timeout the session is marked unauthenticated before onTimeout runs. The
// returned cancel must be called on teardown.
func (c *Controller) StartMonitor(onTimeout func()) (cancel func()) {
	cancel = c.mon.Start(func() {
		c.conv.Invalidate()
		c.mu.Lock()
		c.authenticated = false
		c.user = nil
		c.mu.Unlock()
		if onTimeout != nil {
			onTimeout()
		}
	})

	c.mu.Lock()
	c.cancelMon = cancel
	c.mu.Unlock()
	return cancel
}

// Touch records a qualifying user interaction, resetting the inactivity
// countdown.
func (c *Controller) Touch() {
	c.mon.Touch()
}
