package sqlite

import (
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/profile"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ profile.Store    = (*ProfileStore)(nil)
	_ events.Publisher = (*ActivityLog)(nil)
)
