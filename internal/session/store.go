package session

import (
	"context"

	"github.com/mrlokans/adminauth/internal/flow"
)

// RequestStore is the flow.SessionStore view of one HTTP request's session.
type RequestStore struct {
	sm  *Manager
	ctx context.Context
}

// For returns the session store bound to a request context loaded by
// SessionLoadSave.
func (sm *Manager) For(ctx context.Context) *RequestStore {
	return &RequestStore{sm: sm, ctx: ctx}
}

func (s *RequestStore) SetToken(token string, remember bool) error {
	if err := s.sm.RenewToken(s.ctx); err != nil {
		return err
	}
	s.sm.RememberMe(s.ctx, remember)
	s.sm.Put(s.ctx, KeyToken, token)
	return nil
}

func (s *RequestStore) SetUserInfo(user flow.User, remember bool) error {
	s.sm.RememberMe(s.ctx, remember)
	s.sm.Put(s.ctx, KeyUserInfo, user)
	return nil
}

// Token returns the stored token. Expired tokens count as absent.
func (s *RequestStore) Token() (string, bool) {
	token := s.sm.GetString(s.ctx, KeyToken)
	if !tokenUsable(token, s.sm.now()) {
		return "", false
	}
	return token, true
}

// UserInfo returns the signed-in user, if any.
func (s *RequestStore) UserInfo() (flow.User, bool) {
	user, ok := s.sm.Get(s.ctx, KeyUserInfo).(flow.User)
	return user, ok
}

func (s *RequestStore) SetFlag(key string, value bool, remember bool) error {
	if remember {
		s.sm.RememberMe(s.ctx, true)
	}
	s.sm.Put(s.ctx, keyFlagPrefix+key, value)
	return nil
}

func (s *RequestStore) Flag(key string) (bool, bool) {
	value, ok := s.sm.Get(s.ctx, keyFlagPrefix+key).(bool)
	return value, ok
}

// SetSkipped records the guided tour state for the onboarding UI.
func (s *RequestStore) SetSkipped(skipped bool) {
	s.sm.Put(s.ctx, keyTourSkipped, skipped)
}

// TourSkipped returns the guided tour state, if set.
func (s *RequestStore) TourSkipped() (bool, bool) {
	value, ok := s.sm.Get(s.ctx, keyTourSkipped).(bool)
	return value, ok
}

// Clear signs the user out.
func (s *RequestStore) Clear() error {
	return s.sm.Destroy(s.ctx)
}
