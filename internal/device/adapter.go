// Package device defines the boundary to biometric time-recording devices.
// The sync orchestrator depends only on the interfaces here; concrete
// protocol clients (see the zkteco subpackage) and test fakes both satisfy
// them. Every call is fallible and a failure on one source must never
// corrupt another source's state.
package device

import (
	"context"
	"time"
)

// Source identifies one polled device. The address alone is the source
// identity; port and credential are dial parameters.
type Source struct {
	Address    string `json:"address"`
	Port       int    `json:"port"`
	Credential int    `json:"credential"`
}

// ID returns the stable source identifier used in event keys and watermarks.
func (s Source) ID() string { return s.Address }

// User is one entry of a device's user table.
type User struct {
	UserID string
	Name   string
}

// RawPunch is one attendance record as reported by a device, before
// classification. Code carries the device's raw punch code.
type RawPunch struct {
	UserID    string
	Timestamp time.Time
	Code      int
}

// Session is an open connection to one device. Implementations must be safe
// to Close after a failed call.
type Session interface {
	// ListUsers fetches the device's full user table.
	ListUsers(ctx context.Context) ([]User, error)

	// ListAttendance fetches the device's full attendance log.
	ListAttendance(ctx context.Context) ([]RawPunch, error)

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Adapter opens sessions against sources. One Adapter instance serves all
// configured sources.
type Adapter interface {
	Open(ctx context.Context, src Source) (Session, error)
}
