package service

import (
	"database/sql"
	"fmt"
	"strings"
)

const (
	// ConfigNotificationsEnabled gates whether the scheduler issues any
	// timer requests at all.
	ConfigNotificationsEnabled = "notifications_enabled"
	// ConfigCloudSyncEnabled is recorded in backup snapshots; the sync
	// channel itself lives outside this tool.
	ConfigCloudSyncEnabled = "cloud_sync_enabled"
	// ConfigLegacyMigrationDone is the one-shot legacy migration guard.
	ConfigLegacyMigrationDone = "legacy_migration_completed"
	// ConfigConfirmedSchemaVersion is the schema version last confirmed
	// by a successful run, recorded after the fact.
	ConfigConfirmedSchemaVersion = "confirmed_schema_version"
)

func SetConfig(db *sql.DB, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	_, err := db.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func GetConfig(db *sql.DB, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("config key is required")
	}
	var value string
	err := db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func GetConfigBool(db *sql.DB, key string, def bool) (bool, error) {
	value, ok, err := GetConfig(db, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return def, nil
	}
}

func ListConfig(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}
