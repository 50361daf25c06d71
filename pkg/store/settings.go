package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oskarst/freedomCms/pkg/compose"
)

// Setting is one site-wide key/value pair with a human description.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

// ListSettings returns every setting ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.stmtListSettings.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err = rows.Scan(&st.Key, &st.Value, &st.Description, &st.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// SettingsMap returns all settings as a plain key → value map.
func (s *Store) SettingsMap(ctx context.Context) (map[string]string, error) {
	settings, err := s.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(settings))
	for _, st := range settings {
		m[st.Key] = st.Value
	}
	return m, nil
}

// SetSetting upserts one setting, preserving an existing description when
// none is given.
func (s *Store) SetSetting(ctx context.Context, key, value, description string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    description = CASE WHEN excluded.description = '' THEN settings.description ELSE excluded.description END,
    updated_at = CURRENT_TIMESTAMP`,
		key, value, description)
	return err
}

// SetSettings upserts a batch of settings in one transaction, so a failure
// partway through leaves the stored set untouched. A setting with an empty
// key fails the whole batch.
func (s *Store) SetSettings(ctx context.Context, updates []Setting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, u := range updates {
		if u.Key == "" {
			return fmt.Errorf("setting with empty key (value %q)", u.Value)
		}
		if _, err = tx.ExecContext(ctx, `
INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    description = CASE WHEN excluded.description = '' THEN settings.description ELSE excluded.description END,
    updated_at = CURRENT_TIMESTAMP`,
			u.Key, u.Value, u.Description); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SiteConfig assembles the explicit configuration value object a render or
// editor call receives. Unset keys fall back to the defaults.
func (s *Store) SiteConfig(ctx context.Context) (compose.SiteConfig, error) {
	cfg := compose.DefaultSiteConfig()
	m, err := s.SettingsMap(ctx)
	if err != nil {
		return cfg, err
	}
	if v, ok := m["site_name"]; ok {
		cfg.SiteName = v
	}
	if v, ok := m["site_description"]; ok {
		cfg.SiteDescription = v
	}
	if v, ok := m["base_url"]; ok {
		cfg.BaseURL = v
	}
	if v, ok := m["hide_system_blocks"]; ok {
		cfg.HideSystemBlocks = v == "1"
	}
	return cfg, nil
}
