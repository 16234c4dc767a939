package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/adminauth/internal/crypto"
	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/entities"
	"github.com/mrlokans/adminauth/internal/flow"
)

// LocalStore is the flow.SessionStore used by the terminal client. Values
// written with remember set are persisted in the settings table and survive
// restarts, sealed with the store's key; the rest live only for the life of
// the process.
type LocalStore struct {
	settings *settings.Repository
	sealer   *crypto.Sealer
	clock    func() time.Time

	mu     sync.Mutex
	memory map[string]string
}

func NewLocalStore(repo *settings.Repository, sealer *crypto.Sealer) *LocalStore {
	return &LocalStore{
		settings: repo,
		sealer:   sealer,
		clock:    time.Now,
		memory:   make(map[string]string),
	}
}

func (s *LocalStore) put(key, value string, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !remember {
		s.memory[key] = value
		return nil
	}
	delete(s.memory, key)
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	if err := s.settings.SetSetting(key, sealed); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.memory[key]; ok {
		return value, true
	}
	sealed, ok, err := s.settings.Get(key)
	if err != nil || !ok {
		return "", false
	}
	// Values sealed under another key read as absent.
	value, err := s.sealer.Open(sealed)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *LocalStore) SetToken(token string, remember bool) error {
	if err := s.put(entities.SettingKeySessionToken, token, remember); err != nil {
		return err
	}
	return s.put(entities.SettingKeySessionRememberMe, strconv.FormatBool(remember), remember)
}

func (s *LocalStore) SetUserInfo(user flow.User, remember bool) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}
	return s.put(entities.SettingKeySessionUser, string(data), remember)
}

// Token returns the stored token. Expired tokens count as absent.
func (s *LocalStore) Token() (string, bool) {
	token, ok := s.get(entities.SettingKeySessionToken)
	if !ok || !tokenUsable(token, s.clock()) {
		return "", false
	}
	return token, true
}

// UserInfo returns the signed-in user, if any.
func (s *LocalStore) UserInfo() (flow.User, bool) {
	raw, ok := s.get(entities.SettingKeySessionUser)
	if !ok {
		return flow.User{}, false
	}
	var user flow.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return flow.User{}, false
	}
	return user, true
}

func (s *LocalStore) SetFlag(key string, value bool, remember bool) error {
	return s.put(entities.SettingKeySessionFlagPrefix+key, strconv.FormatBool(value), remember)
}

func (s *LocalStore) Flag(key string) (bool, bool) {
	raw, ok := s.get(entities.SettingKeySessionFlagPrefix + key)
	if !ok {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

// SetSkipped records the guided tour state for the life of the process.
func (s *LocalStore) SetSkipped(skipped bool) {
	_ = s.put(entities.SettingKeySessionFlagPrefix+keyTourSkipped, strconv.FormatBool(skipped), false)
}

// TourSkipped reports the guided tour state, if set.
func (s *LocalStore) TourSkipped() (bool, bool) {
	return s.Flag(keyTourSkipped)
}

// Clear removes every stored session value.
func (s *LocalStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = make(map[string]string)
	for _, key := range []string{
		entities.SettingKeySessionToken,
		entities.SettingKeySessionUser,
		entities.SettingKeySessionRememberMe,
	} {
		if err := s.settings.DeleteSetting(key); err != nil {
			return err
		}
	}
	return s.settings.DeletePrefix(entities.SettingKeySessionFlagPrefix)
}
