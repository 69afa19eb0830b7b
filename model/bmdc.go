package model

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// BmdcDoctor is an entry of the medical council registry used to verify
// doctor registrations. It is reference data and never edited by doctors.
type BmdcDoctor struct {
	gorm.Model
	Name string `json:"name" gorm:"column:name;size:191;not null" example:"Dr. Abdul Karim"`
	Bmdc string `json:"bmdc" gorm:"column:bmdc;size:32;uniqueIndex;not null" example:"A-12345"`
}

// ErrInvalidRegistryEntry is returned by ResetBmdcRegistry for malformed input.
var ErrInvalidRegistryEntry = errors.New("invalid registry entry")

// DefaultBmdcRegistry is the registry content seeded on startup.
var DefaultBmdcRegistry = []BmdcDoctor{
	{Name: "Dr. Abdul Karim", Bmdc: "A-12345"},
	{Name: "Dr. Nusrat Jahan", Bmdc: "A-23456"},
	{Name: "Dr. Tanvir Ahmed", Bmdc: "A-34567"},
	{Name: "Dr. Farhana Islam", Bmdc: "A-45678"},
	{Name: "Dr. Mahmudul Hasan", Bmdc: "A-56789"},
}

// SeedBmdcRegistry inserts the default registry entries that are missing.
func SeedBmdcRegistry(db *gorm.DB) error {
	for _, entry := range DefaultBmdcRegistry {
		var existing BmdcDoctor
		// Check if the entry already exists.
		err := db.Where("bmdc = ?", entry.Bmdc).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		row := BmdcDoctor{Name: entry.Name, Bmdc: entry.Bmdc}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to seed bmdc entry %s: %w", entry.Bmdc, err)
		}
	}
	return nil
}

// ResetBmdcRegistry replaces the whole registry with entries in one transaction.
// An empty entries slice restores the default registry.
func ResetBmdcRegistry(db *gorm.DB, entries []BmdcDoctor) ([]BmdcDoctor, error) {
	if len(entries) == 0 {
		entries = DefaultBmdcRegistry
	}
	rows := make([]BmdcDoctor, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		number := strings.ToUpper(strings.TrimSpace(e.Bmdc))
		if name == "" || number == "" {
			return nil, fmt.Errorf("%w: name and bmdc are required", ErrInvalidRegistryEntry)
		}
		if _, dup := seen[number]; dup {
			return nil, fmt.Errorf("%w: duplicate bmdc %s", ErrInvalidRegistryEntry, number)
		}
		seen[number] = struct{}{}
		rows = append(rows, BmdcDoctor{Name: name, Bmdc: number})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("1 = 1").Delete(&BmdcDoctor{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
