package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"news_briefing/internal/model"
)

const upsertSetting = `INSERT INTO system_settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// GetSetting returns the stored value for key and whether a row exists.
func (s *SQLite) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting writes a single key. Last writer wins.
func (s *SQLite) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertSetting, key, value, nowString()); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SaveSchedule writes the schedule expression and enabled flag together.
func (s *SQLite) SaveSchedule(ctx context.Context, expr string, enabled bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowString()
	if _, err := tx.ExecContext(ctx, upsertSetting, model.SettingSchedule, expr, now); err != nil {
		return fmt.Errorf("set schedule: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertSetting, model.SettingEnabled, strconv.FormatBool(enabled), now); err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	return tx.Commit()
}

// ListSettings returns every stored row ordered by key.
func (s *SQLite) ListSettings(ctx context.Context) ([]model.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		var updated string
		if err := rows.Scan(&st.Key, &st.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		st.UpdatedAt = parseTime(updated)
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// LoadSettings returns the typed settings with defaults applied for absent rows.
// A stored NEWS_FILTER_OFF only disables the default when it is exactly "false".
func (s *SQLite) LoadSettings(ctx context.Context) (model.Settings, error) {
	rows, err := s.ListSettings(ctx)
	if err != nil {
		return model.Settings{}, err
	}

	out := model.DefaultSettings()
	for _, st := range rows {
		switch st.Key {
		case model.SettingSchedule:
			if st.Value != "" {
				out.Schedule = st.Value
			}
		case model.SettingEnabled:
			out.Enabled = st.Value == "true"
		case model.SettingRecency:
			if st.Value != "" {
				out.RecencyFilter = st.Value
			}
		case model.SettingFilterOff:
			out.FilterOff = st.Value != "false"
		case model.SettingExpansionLimit:
			if st.Value != "" {
				out.ExpansionLimit = st.Value
			}
		}
	}
	return out, nil
}
