package service_test

import (
	"testing"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	if err := service.SetConfig(sqldb, "Notifications_Enabled", "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := service.GetConfig(sqldb, service.ConfigNotificationsEnabled)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "false" {
		t.Fatalf("expected stored false, got %q ok=%t", value, ok)
	}

	// Overwrite through the same key.
	if err := service.SetConfig(sqldb, service.ConfigNotificationsEnabled, "true"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	enabled, err := service.GetConfigBool(sqldb, service.ConfigNotificationsEnabled, false)
	if err != nil {
		t.Fatalf("get bool: %v", err)
	}
	if !enabled {
		t.Fatal("overwrite did not stick")
	}
}

func TestGetConfigBoolDefaults(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	enabled, err := service.GetConfigBool(sqldb, service.ConfigNotificationsEnabled, true)
	if err != nil {
		t.Fatalf("get bool: %v", err)
	}
	if !enabled {
		t.Fatal("missing key should fall back to the default")
	}

	if err := service.SetConfig(sqldb, service.ConfigNotificationsEnabled, "maybe"); err != nil {
		t.Fatalf("set: %v", err)
	}
	enabled, err = service.GetConfigBool(sqldb, service.ConfigNotificationsEnabled, true)
	if err != nil {
		t.Fatalf("get bool: %v", err)
	}
	if !enabled {
		t.Fatal("unparseable value should fall back to the default")
	}
}
