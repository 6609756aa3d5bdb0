package interfaces

import (
	"context"

	"clubattend/pkg/types"
)

// UserStore resolves user identities
type UserStore interface {
	// GetUser returns ErrNotFound when the user does not exist
	GetUser(ctx context.Context, userID string) (*types.User, error)

	// CreateUser inserts or refreshes a user row
	// FUNCTIONAL DISCOVERY: Identity lives in an external provider, so the
	// local row is an upsert keyed by the provider's user ID
	CreateUser(ctx context.Context, user *types.User) error
}

// ClubDirectory answers membership and leadership questions
// ARCHITECTURAL DISCOVERY: The live attendance core only ever asks yes/no
// questions about clubs, keeping the storage schema out of the session layer
type ClubDirectory interface {
	CreateClub(ctx context.Context, club *types.Club) error

	// GetClub returns ErrClubNotFound when the club does not exist
	GetClub(ctx context.Context, clubCode string) (*types.Club, error)

	// JoinClub replaces any prior membership of the user with the given club.
	// Returns ErrClubNotFound or ErrAlreadyMember.
	JoinClub(ctx context.Context, userID, clubCode string) error

	IsMember(ctx context.Context, userID, clubCode string) (bool, error)

	// IsClubLeader reports whether the user is a leader and a member of the club
	IsClubLeader(ctx context.Context, userID, clubCode string) (bool, error)

	// ResolveLeaderClub returns the club a leader runs.
	// Returns ErrForbidden when the user is not a leader, ErrNotFound when
	// the leader has no club.
	ResolveLeaderClub(ctx context.Context, userID string) (string, error)

	UpdateClubLocation(ctx context.Context, clubCode string, location types.ClubLocation) error
}

// AttendanceStore persists registered dates and attendance records
type AttendanceStore interface {
	// RegisterDates registers meeting dates for a club; already registered
	// dates are returned unchanged
	RegisterDates(ctx context.Context, clubCode, setBy string, dates []string) ([]*types.AttendanceDate, error)

	// GetAttendanceDate returns ErrDateNotRegistered when the date is unknown
	GetAttendanceDate(ctx context.Context, clubCode, date string) (*types.AttendanceDate, error)

	DateIsRegistered(ctx context.Context, clubCode, date string) (bool, error)

	// RecordAttendance stores one record per (user, attendance date).
	// FUNCTIONAL DISCOVERY: Duplicate prevention is a storage uniqueness
	// constraint and surfaces as ErrAlreadyRecorded
	RecordAttendance(ctx context.Context, userID, clubCode, date, status string) (*types.AttendanceRecord, error)

	Roster(ctx context.Context, clubCode, date string) (*types.Roster, error)

	MemberHistory(ctx context.Context, userID, clubCode string) ([]*types.MemberAttendance, error)

	// BulkUpdateAttendance upserts statuses for one attendance date of the club
	// and returns the number of rows applied
	BulkUpdateAttendance(ctx context.Context, clubCode string, attendanceDateID int64, updates []types.AttendanceUpdate) (int, error)
}

// DatabaseManager handles all database operations
// ARCHITECTURAL DISCOVERY: Single interface for all persistence operations
// enables consistent transaction handling and connection management
type DatabaseManager interface {
	UserStore
	ClubDirectory
	AttendanceStore

	// HealthCheck verifies database connectivity and basic operations
	HealthCheck(ctx context.Context) error

	// Close closes the database connection and cleans up resources
	Close() error
}
