// Package quota models the per-container disk quota control. Real
// volume-level quota enforcement requires the Windows Disk Quota COM
// interface, which is out of scope for this host; Control only records
// which volume a container's root lives on so the binding survives
// restore, and returns Unimplemented for anything that would require
// enforcement.
package quota

import "github.com/ironframe-host/ironframe/internal/ironerr"

// Manager obtains a Control bound to a volume.
type Manager interface {
	ControlFor(volume string) (*Control, error)
}

// Control is the per-container quota handle. Limit is advisory only: no
// production backend enforces it, matching this host's non-goal of
// volume-level disk accounting.
type Control struct {
	Volume string
	Limit  uint64
}

// DefaultManager is the in-memory Manager used both in production (since
// there is no enforcement backend to wire) and in tests.
type DefaultManager struct{}

func (DefaultManager) ControlFor(volume string) (*Control, error) {
	return &Control{Volume: volume}, nil
}

// SetLimit is declared for API completeness with a hypothetical
// enforcing backend; this host has none, so it always fails.
func (c *Control) SetLimit(bytes uint64) error {
	return ironerr.ErrUnimplemented
}
