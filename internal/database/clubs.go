package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// CreateClub inserts a club or refreshes its name and location
func (m *Manager) CreateClub(ctx context.Context, club *types.Club) error {
	if err := club.Validate(); err != nil {
		return err
	}
	return m.executeWrite(ctx, func(db *sql.DB) error {
		loc := club.Location
		_, err := db.ExecContext(ctx, m.dialect.upsertClub,
			club.Code, club.Name, loc.Enabled, nullFloat(loc.Latitude), nullFloat(loc.Longitude), loc.RadiusKm)
		if err != nil {
			return fmt.Errorf("failed to upsert club: %w", err)
		}
		return nil
	})
}

// GetClub retrieves a club with its location settings
func (m *Manager) GetClub(ctx context.Context, clubCode string) (*types.Club, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT club_code, name, location_enabled, latitude, longitude, radius_km, created_at
		FROM clubs
		WHERE club_code = ?
	`, clubCode)

	var club types.Club
	var lat, lon sql.NullFloat64
	err := row.Scan(&club.Code, &club.Name, &club.Location.Enabled, &lat, &lon, &club.Location.RadiusKm, &club.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to query club: %w", err)
	}

	// FUNCTIONAL DISCOVERY: NULL coordinates mean "no centre yet", which the
	// geofence treats differently from a centre at 0,0
	if lat.Valid {
		club.Location.Latitude = &lat.Float64
	}
	if lon.Valid {
		club.Location.Longitude = &lon.Float64
	}
	return &club, nil
}

// JoinClub replaces the user's membership with the given club
// FUNCTIONAL DISCOVERY: A member belongs to one club at a time; joining a new
// club drops the previous membership in the same transaction
func (m *Manager) JoinClub(ctx context.Context, userID, clubCode string) error {
	return m.executeTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE user_id = ?", userID).Scan(&count); err != nil {
			return fmt.Errorf("failed to query user: %w", err)
		}
		if count == 0 {
			return interfaces.ErrNotFound
		}

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM clubs WHERE club_code = ?", clubCode).Scan(&count); err != nil {
			return fmt.Errorf("failed to query club: %w", err)
		}
		if count == 0 {
			return interfaces.ErrClubNotFound
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM memberships WHERE user_id = ? AND club_code = ?", userID, clubCode,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to query membership: %w", err)
		}
		if count > 0 {
			return interfaces.ErrAlreadyMember
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM memberships WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to remove previous membership: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO memberships (user_id, club_code) VALUES (?, ?)", userID, clubCode,
		); err != nil {
			if isUniqueViolation(err) {
				return interfaces.ErrAlreadyMember
			}
			return fmt.Errorf("failed to insert membership: %w", err)
		}
		return nil
	})
}

// IsMember reports whether the user belongs to the club
func (m *Manager) IsMember(ctx context.Context, userID, clubCode string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memberships WHERE user_id = ? AND club_code = ?", userID, clubCode,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query membership: %w", err)
	}
	return count > 0, nil
}

// IsClubLeader reports whether the user is a leader who belongs to the club
func (m *Manager) IsClubLeader(ctx context.Context, userID, clubCode string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM memberships m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.user_id = ? AND m.club_code = ? AND u.is_leader <> 0
	`, userID, clubCode).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query leadership: %w", err)
	}
	return count > 0, nil
}

// ResolveLeaderClub returns the club a leader runs
func (m *Manager) ResolveLeaderClub(ctx context.Context, userID string) (string, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.IsLeader {
		return "", interfaces.ErrForbidden
	}

	var clubCode string
	err = m.db.QueryRowContext(ctx, `
		SELECT club_code FROM memberships
		WHERE user_id = ?
		ORDER BY joined_at DESC
		LIMIT 1
	`, userID).Scan(&clubCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", interfaces.ErrNotFound
		}
		return "", fmt.Errorf("failed to query leader club: %w", err)
	}
	return clubCode, nil
}

// UpdateClubLocation replaces the geofence settings of a club
func (m *Manager) UpdateClubLocation(ctx context.Context, clubCode string, location types.ClubLocation) error {
	if err := location.Validate(); err != nil {
		return err
	}
	return m.executeWrite(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE clubs
			SET location_enabled = ?, latitude = ?, longitude = ?, radius_km = ?
			WHERE club_code = ?
		`, location.Enabled, nullFloat(location.Latitude), nullFloat(location.Longitude), location.RadiusKm, clubCode)
		if err != nil {
			return fmt.Errorf("failed to update club location: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return interfaces.ErrClubNotFound
		}
		return nil
	})
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
