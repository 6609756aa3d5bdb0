package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"clubattend/internal/geofence"
	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// Request is one member check-in attempt.
// Exactly one of Code (short digits for ClubCode) or QR (full "club:code") is used.
type Request struct {
	UserID    string
	ClubCode  string
	Code      string
	QR        string
	Latitude  *float64
	Longitude *float64
}

// Result describes an accepted check-in
type Result struct {
	ClubCode string                  `json:"club_code"`
	Date     string                  `json:"date"`
	Record   *types.AttendanceRecord `json:"record"`
}

// Store is the persistence the check-in path needs
type Store interface {
	IsMember(ctx context.Context, userID, clubCode string) (bool, error)
	GetClub(ctx context.Context, clubCode string) (*types.Club, error)
	RecordAttendance(ctx context.Context, userID, clubCode, date, status string) (*types.AttendanceRecord, error)
}

// Service runs the full member check-in: membership, code, geofence, record
type Service struct {
	validator *Validator
	store     Store
}

// NewService creates a check-in service
func NewService(validator *Validator, store Store) *Service {
	return &Service{validator: validator, store: store}
}

// CheckIn validates the request and records attendance for the session's date
// FUNCTIONAL DISCOVERY: Duplicate prevention is left to the store's uniqueness
// constraint, so two concurrent check-ins by one member yield one record
func (s *Service) CheckIn(ctx context.Context, req Request) (*Result, error) {
	clubCode, composite, err := resolveCode(req)
	if err != nil {
		return nil, err
	}

	member, err := s.store.IsMember(ctx, req.UserID, clubCode)
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}

	snap, err := s.validator.Validate(clubCode, composite)
	if err != nil {
		return nil, err
	}

	club, err := s.store.GetClub(ctx, clubCode)
	if err != nil {
		return nil, fmt.Errorf("loading club: %w", err)
	}
	if err := geofence.Check(club.Location, req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	record, err := s.store.RecordAttendance(ctx, req.UserID, clubCode, snap.Date, types.StatusPresent)
	if err != nil {
		if errors.Is(err, interfaces.ErrAlreadyRecorded) {
			return nil, err
		}
		return nil, fmt.Errorf("recording attendance: %w", err)
	}

	log.Printf("Check-in accepted: user=%s club=%s date=%s", req.UserID, clubCode, snap.Date)
	return &Result{ClubCode: clubCode, Date: snap.Date, Record: record}, nil
}

func resolveCode(req Request) (clubCode, composite string, err error) {
	if req.QR != "" {
		clubCode, _, err = ParseQR(req.QR)
		if err != nil {
			return "", "", err
		}
		return clubCode, strings.TrimSpace(req.QR), nil
	}

	code := strings.TrimSpace(req.Code)
	if req.ClubCode == "" || code == "" {
		return "", "", ErrMissingCode
	}
	// Members may paste the whole composite from the leader's screen
	if strings.HasPrefix(code, req.ClubCode+":") {
		return req.ClubCode, code, nil
	}
	return req.ClubCode, Composite(req.ClubCode, code), nil
}
