package service

import "errors"

// Failure taxonomy shared by the store, the migration engine, and the
// reminder reconciler. Callers match with errors.Is; everything else is
// wrapped context in the usual way.
var (
	ErrStoreUnavailable     = errors.New("intake store unavailable")
	ErrMigrationIncomplete  = errors.New("legacy migration incomplete")
	ErrInvalidBackupFormat  = errors.New("invalid backup format")
	ErrImportFailed         = errors.New("backup import failed")
	ErrReminderActionFailed = errors.New("reminder action failed")
)
