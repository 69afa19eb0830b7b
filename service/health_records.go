package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"gorm.io/gorm"
)

// HealthRecords keeps a patient's BMI and blood pressure histories.
// Writes are guarded by the row version: a write that lost a race fails with
// ErrConcurrentUpdate instead of overwriting the other write.
type HealthRecords struct {
	DB  *gorm.DB
	Now func() time.Time
}

// MetricInput is one reading. Weight is in kg and height in cm.
type MetricInput struct {
	Type      string   `json:"type" binding:"required"`
	Weight    *float64 `json:"weight"`
	Height    *float64 `json:"height"`
	Systolic  *int     `json:"systolic"`
	Diastolic *int     `json:"diastolic"`
	Pulse     *int     `json:"pulse"`
}

func (h *HealthRecords) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// GetOrCreate returns the patient's record, creating an empty one on first use.
func (h *HealthRecords) GetOrCreate(patientID uint) (*model.HealthData, error) {
	var hd model.HealthData
	err := h.DB.Where("patient_id = ?", patientID).First(&hd).Error
	if err == nil {
		return &hd, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hd = model.HealthData{
		PatientID:  patientID,
		BMIHistory: []model.BMIEntry{},
		BPHistory:  []model.BPEntry{},
	}
	if err := h.DB.Create(&hd).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Created concurrently by another request.
		if err := h.DB.Where("patient_id = ?", patientID).First(&hd).Error; err != nil {
			return nil, err
		}
	}
	return &hd, nil
}

// ComputeBMI returns weight / (height in metres)^2 rounded to two decimals.
func ComputeBMI(weightKg, heightCm float64) float64 {
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*100) / 100
}

// Append adds a timestamped reading to the history selected by in.Type.
func (h *HealthRecords) Append(patientID uint, in MetricInput) (*model.HealthData, error) {
	now := h.now()
	hd, err := h.GetOrCreate(patientID)
	if err != nil {
		return nil, err
	}

	switch in.Type {
	case model.HealthMetricBMI:
		if in.Weight == nil || in.Height == nil || *in.Weight <= 0 || *in.Height <= 0 {
			return nil, fmt.Errorf("%w: weight and height must be positive numbers", ErrInvalidInput)
		}
		hd.BMIHistory = append(hd.BMIHistory, model.BMIEntry{
			Weight: *in.Weight,
			Height: *in.Height,
			BMI:    ComputeBMI(*in.Weight, *in.Height),
			Date:   now,
		})
	case model.HealthMetricBP:
		if in.Systolic == nil || in.Diastolic == nil || *in.Systolic <= 0 || *in.Diastolic <= 0 {
			return nil, fmt.Errorf("%w: systolic and diastolic must be positive numbers", ErrInvalidInput)
		}
		entry := model.BPEntry{Systolic: *in.Systolic, Diastolic: *in.Diastolic, Date: now}
		if in.Pulse != nil {
			if *in.Pulse < 0 {
				return nil, fmt.Errorf("%w: pulse cannot be negative", ErrInvalidInput)
			}
			entry.Pulse = *in.Pulse
		}
		hd.BPHistory = append(hd.BPHistory, entry)
	default:
		return nil, fmt.Errorf("%w: unknown metric type %q", ErrInvalidInput, in.Type)
	}

	if err := h.save(hd); err != nil {
		return nil, err
	}
	return hd, nil
}

// RemoveAt deletes the entry at index from the history selected by metric.
// The history is left unchanged when index is out of bounds.
func (h *HealthRecords) RemoveAt(patientID uint, metric string, index int) (*model.HealthData, error) {
	if metric != model.HealthMetricBMI && metric != model.HealthMetricBP {
		return nil, fmt.Errorf("%w: unknown metric type %q", ErrInvalidInput, metric)
	}
	hd, err := h.GetOrCreate(patientID)
	if err != nil {
		return nil, err
	}

	switch metric {
	case model.HealthMetricBMI:
		if index < 0 || index >= len(hd.BMIHistory) {
			return nil, ErrIndexOutOfRange
		}
		hd.BMIHistory = append(hd.BMIHistory[:index:index], hd.BMIHistory[index+1:]...)
	case model.HealthMetricBP:
		if index < 0 || index >= len(hd.BPHistory) {
			return nil, ErrIndexOutOfRange
		}
		hd.BPHistory = append(hd.BPHistory[:index:index], hd.BPHistory[index+1:]...)
	}

	if err := h.save(hd); err != nil {
		return nil, err
	}
	return hd, nil
}

func (h *HealthRecords) save(hd *model.HealthData) error {
	res := h.DB.Model(&model.HealthData{}).
		Where("id = ? AND version = ?", hd.ID, hd.Version).
		Updates(map[string]interface{}{
			"bmi_history": hd.BMIHistory,
			"bp_history":  hd.BPHistory,
			"version":     hd.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	hd.Version++
	return nil
}
