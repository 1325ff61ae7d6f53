package database

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ilivehere/backend/internal/models"
	"github.com/ilivehere/backend/internal/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AreaSeed struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type AreasFile struct {
	Areas []AreaSeed `json:"areas"`
}

// LoadAreas reads the area seed file, e.g. {"areas":[{"name":"Hatherleigh","slug":"hatherleigh"}]}.
func LoadAreas(path string) ([]AreaSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read areas config: %w", err)
	}

	var file AreasFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse areas config: %w", err)
	}

	seen := make(map[string]bool, len(file.Areas))
	for i, a := range file.Areas {
		a.Name = strings.TrimSpace(a.Name)
		a.Slug = strings.TrimSpace(a.Slug)
		if a.Name == "" || a.Slug == "" {
			return nil, fmt.Errorf("area %d in %s needs a name and a slug", i, path)
		}
		if seen[a.Slug] {
			return nil, fmt.Errorf("duplicate area slug %q in %s", a.Slug, path)
		}
		seen[a.Slug] = true
		file.Areas[i] = a
	}
	return file.Areas, nil
}

// SeedAreas inserts areas that are not there yet. Existing rows are left alone.
func SeedAreas(db *gorm.DB, seeds []AreaSeed) error {
	for _, seed := range seeds {
		area := models.Area{Name: seed.Name, Slug: seed.Slug}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&area).Error
		if err != nil {
			return fmt.Errorf("failed to seed area %q: %w", seed.Slug, err)
		}
	}
	return nil
}

// SeedModerateStates provisions the three canonical moderate_states rows.
func SeedModerateStates(db *gorm.DB) error {
	for _, state := range models.ModerateStates {
		row := models.ModerateStateRecord{Name: state.Name(), Slug: state.String()}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to seed moderate state %q: %w", state, err)
		}
	}
	return nil
}

// VerifyModerateStates fails with a configuration error when a canonical row is missing.
func VerifyModerateStates(db *gorm.DB) error {
	var rows []models.ModerateStateRecord
	if err := db.Find(&rows).Error; err != nil {
		return oops.New(err, "failed to load moderate states")
	}
	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		present[row.Slug] = true
	}
	for _, state := range models.ModerateStates {
		if !present[state.String()] {
			return oops.Configuration("moderate state %q is not provisioned", state)
		}
	}
	return nil
}
