// Package session holds the bearer credential of the client session and
// announces presence transitions (login/logout) and subject switches.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Subject      string `json:"subject"`
}

// Refresher exchanges a refresh token for new credentials.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

var ErrNoRefreshToken = errors.New("no refresh token")

type Session struct {
	mu        sync.RWMutex
	creds     *Credentials
	refresher Refresher
	listeners []func(present bool)
}

func New() *Session {
	return &Session{}
}

// SetRefresher is separate from New because the refresher is usually an
// HTTP gateway that itself needs the session.
func (s *Session) SetRefresher(r Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = r
}

func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil || s.creds.AccessToken == "" {
		return "", false
	}
	return s.creds.AccessToken, true
}

// Subject identifies the cart owner; empty for guests.
func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.Subject
}

// Set stores c. Listeners run when presence flips or when a present session
// switches to another subject.
func (s *Session) Set(c Credentials) {
	s.mu.Lock()
	was := s.present()
	var prevSubject string
	if s.creds != nil {
		prevSubject = s.creds.Subject
	}
	cp := c
	s.creds = &cp
	now := s.present()
	s.mu.Unlock()
	if was != now || (now && prevSubject != c.Subject) {
		s.notify(now)
	}
}

func (s *Session) Clear() {
	s.mu.Lock()
	was := s.present()
	s.creds = nil
	s.mu.Unlock()
	if was {
		s.notify(false)
	}
}

// Refresh replaces the access token using the refresh token. Subject is kept
// when the refresher does not return one.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresher := s.refresher
	var refreshToken, subject string
	if s.creds != nil {
		refreshToken = s.creds.RefreshToken
		subject = s.creds.Subject
	}
	s.mu.RUnlock()

	if refresher == nil || refreshToken == "" {
		return fmt.Errorf("%w: %w", domain.ErrAuthRequired, ErrNoRefreshToken)
	}
	fresh, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("refresh credentials: %w", err)
	}
	if fresh.Subject == "" {
		fresh.Subject = subject
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}

	s.mu.Lock()
	s.creds = &fresh
	s.mu.Unlock()
	return nil
}

// OnChange registers fn for credential presence transitions and subject
// switches. present is the presence after the change.
func (s *Session) OnChange(fn func(present bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) present() bool {
	return s.creds != nil && s.creds.AccessToken != ""
}

func (s *Session) notify(present bool) {
	s.mu.RLock()
	listeners := make([]func(bool), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(present)
	}
}
