package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// Seed is the development fixture loaded from database.seed_file
type Seed struct {
	Users       []types.User     `yaml:"users"`
	Clubs       []types.Club     `yaml:"clubs"`
	Memberships []SeedMembership `yaml:"memberships"`
	Dates       []SeedDates      `yaml:"dates"`
}

type SeedMembership struct {
	UserID   string `yaml:"user_id"`
	ClubCode string `yaml:"club_code"`
}

type SeedDates struct {
	ClubCode string   `yaml:"club_code"`
	SetBy    string   `yaml:"set_by"`
	Dates    []string `yaml:"dates"`
}

// LoadSeed reads a YAML seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply writes the seed through the database manager.
// FUNCTIONAL DISCOVERY: Seeding is rerunnable; existing users are upserted,
// existing clubs and memberships are left alone
func (s *Seed) Apply(ctx context.Context, db interfaces.DatabaseManager) error {
	for i := range s.Users {
		if err := db.CreateUser(ctx, &s.Users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", s.Users[i].UserID, err)
		}
	}
	for i := range s.Clubs {
		club := &s.Clubs[i]
		if _, err := db.GetClub(ctx, club.Code); err == nil {
			continue
		} else if !errors.Is(err, interfaces.ErrClubNotFound) {
			return fmt.Errorf("seed club %s: %w", club.Code, err)
		}
		if err := db.CreateClub(ctx, club); err != nil {
			return fmt.Errorf("seed club %s: %w", club.Code, err)
		}
	}
	for _, m := range s.Memberships {
		if err := db.JoinClub(ctx, m.UserID, m.ClubCode); err != nil && !errors.Is(err, interfaces.ErrAlreadyMember) {
			return fmt.Errorf("seed membership %s/%s: %w", m.UserID, m.ClubCode, err)
		}
	}
	for _, d := range s.Dates {
		if _, err := db.RegisterDates(ctx, d.ClubCode, d.SetBy, d.Dates); err != nil {
			return fmt.Errorf("seed dates for %s: %w", d.ClubCode, err)
		}
	}

	log.Printf("Seed applied: users=%d clubs=%d memberships=%d date_sets=%d",
		len(s.Users), len(s.Clubs), len(s.Memberships), len(s.Dates))
	return nil
}
