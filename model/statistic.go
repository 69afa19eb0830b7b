package model

import (
	"errors"

	"gorm.io/gorm"
)

// Statistic keys maintained by the application.
const (
	StatPatients      = "patients"
	StatDoctors       = "doctors"
	StatAppointments  = "appointments"
	StatPrescriptions = "prescriptions"
	StatReviews       = "reviews"
)

// Statistic is a named counter.
type Statistic struct {
	gorm.Model
	Name  string `json:"name" gorm:"column:name;size:64;uniqueIndex;not null"`
	Total int64  `json:"total" gorm:"column:total;not null;default:0"`
}

// IncrementStatistic adds one to the named counter, creating it on first use.
func IncrementStatistic(db *gorm.DB, name string) error {
	res := db.Model(&Statistic{}).Where("name = ?", name).UpdateColumn("total", gorm.Expr("total + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	err := db.Create(&Statistic{Name: name, Total: 1}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Created concurrently; count this hit on the existing row.
		return db.Model(&Statistic{}).Where("name = ?", name).UpdateColumn("total", gorm.Expr("total + 1")).Error
	}
	return err
}

// AllModels lists every model migrated on startup.
func AllModels() []interface{} {
	return []interface{}{
		&Patient{},
		&Doctor{},
		&BmdcDoctor{},
		&Appointment{},
		&Prescription{},
		&HealthData{},
		&Review{},
		&ReviewDoctor{},
		&Statistic{},
		&SecurityLog{},
	}
}
