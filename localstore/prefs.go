package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/erntsn/todo-app/pomodoro"
)

const (
	PrefDarkMode = "darkMode"
	PrefLanguage = "language"
	PrefViewMode = "viewMode"
	PrefPomodoro = "pomodoroSettings"
)

var (
	Languages = []string{"tr", "en"}
	ViewModes = []string{"list", "board", "calendar"}
)

// Prefs are the client settings kept across sessions.
type Prefs struct {
	DarkMode bool              `json:"darkMode" yaml:"darkMode"`
	Language string            `json:"language" yaml:"language"`
	ViewMode string            `json:"viewMode" yaml:"viewMode"`
	Pomodoro pomodoro.Settings `json:"pomodoroSettings" yaml:"pomodoroSettings"`
}

func DefaultPrefs() Prefs {
	return Prefs{Language: "tr", ViewMode: "list", Pomodoro: pomodoro.DefaultSettings()}
}

func (s *Store) Pref(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO prefs (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Prefs loads the preferences, falling back to defaults for missing or
// unreadable values.
func (s *Store) Prefs(ctx context.Context) (Prefs, error) {
	p := DefaultPrefs()

	if v, ok, err := s.Pref(ctx, PrefDarkMode); err != nil {
		return p, err
	} else if ok {
		p.DarkMode = v == "true"
	}
	if v, ok, err := s.Pref(ctx, PrefLanguage); err != nil {
		return p, err
	} else if ok && oneOf(v, Languages) {
		p.Language = v
	}
	if v, ok, err := s.Pref(ctx, PrefViewMode); err != nil {
		return p, err
	} else if ok && oneOf(v, ViewModes) {
		p.ViewMode = v
	}
	if v, ok, err := s.Pref(ctx, PrefPomodoro); err != nil {
		return p, err
	} else if ok {
		var saved pomodoro.Settings
		if json.Unmarshal([]byte(v), &saved) == nil {
			merged := p.Pomodoro.Merge(saved)
			if merged.Validate() == nil {
				p.Pomodoro = merged
			}
		}
	}
	return p, nil
}

func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	return s.SetPref(ctx, PrefDarkMode, strconv.FormatBool(on))
}

func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	if !oneOf(lang, Languages) {
		return fmt.Errorf("unsupported language %q", lang)
	}
	return s.SetPref(ctx, PrefLanguage, lang)
}

func (s *Store) SetViewMode(ctx context.Context, mode string) error {
	if !oneOf(mode, ViewModes) {
		return fmt.Errorf("unknown view mode %q", mode)
	}
	return s.SetPref(ctx, PrefViewMode, mode)
}

func (s *Store) SetPomodoroSettings(ctx context.Context, settings pomodoro.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.SetPref(ctx, PrefPomodoro, string(data))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
