package service

import (
	"errors"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/ariebrainware/telemed-api/model"
	"gorm.io/gorm"
)

const (
	// MaxReviewMessage is the longest accepted review message in characters.
	MaxReviewMessage = 500
	// DefaultSampleSize is how many reviews a sample shows by default.
	DefaultSampleSize = 3
	maxSampleSize     = 20
)

// Reviews stores platform reviews. Each patient and each doctor may review
// once; the unique index on the author column enforces it.
type Reviews struct {
	DB    *gorm.DB
	Stats *Statistics
	// Perm overrides the random permutation in tests.
	Perm func(n int) []int
}

func validateReview(rating int, message string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", ErrInvalidRating
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxReviewMessage {
		return "", ErrMessageTooLong
	}
	return message, nil
}

// SubmitPatientReview stores the patient's review.
func (r *Reviews) SubmitPatientReview(patient *model.Patient, rating int, message string) (*model.Review, error) {
	message, err := validateReview(rating, message)
	if err != nil {
		return nil, err
	}
	review := model.Review{
		PatientID:   patient.ID,
		PatientName: patient.FullName,
		Photo:       patient.ProfilePhoto,
		Rating:      rating,
		Message:     message,
	}
	if err := r.DB.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	r.Stats.Record(model.StatReviews)
	return &review, nil
}

// SubmitDoctorReview stores the doctor's review.
func (r *Reviews) SubmitDoctorReview(doctor *model.Doctor, rating int, message string) (*model.ReviewDoctor, error) {
	message, err := validateReview(rating, message)
	if err != nil {
		return nil, err
	}
	review := model.ReviewDoctor{
		DoctorID:       doctor.ID,
		DoctorName:     doctor.FullName,
		Specialization: doctor.Specialization,
		Photo:          doctor.ProfilePhoto,
		Rating:         rating,
		Message:        message,
	}
	if err := r.DB.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	r.Stats.Record(model.StatReviews)
	return &review, nil
}

func sampleSize(n int) int {
	if n <= 0 {
		return DefaultSampleSize
	}
	if n > maxSampleSize {
		return maxSampleSize
	}
	return n
}

// pickIDs returns up to n ids chosen uniformly at random from ids.
func (r *Reviews) pickIDs(ids []uint, n int) []uint {
	perm := rand.Perm
	if r.Perm != nil {
		perm = r.Perm
	}
	order := perm(len(ids))
	if n > len(order) {
		n = len(order)
	}
	picked := make([]uint, 0, n)
	for _, i := range order[:n] {
		picked = append(picked, ids[i])
	}
	return picked
}

// SamplePatientReviews returns up to n random patient reviews.
func (r *Reviews) SamplePatientReviews(n int) ([]model.Review, error) {
	var ids []uint
	if err := r.DB.Model(&model.Review{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	picked := r.pickIDs(ids, sampleSize(n))
	if len(picked) == 0 {
		return []model.Review{}, nil
	}
	var rows []model.Review
	if err := r.DB.Where("id IN ?", picked).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Review, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]model.Review, 0, len(picked))
	for _, id := range picked {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// SampleDoctorReviews returns up to n random doctor reviews.
func (r *Reviews) SampleDoctorReviews(n int) ([]model.ReviewDoctor, error) {
	var ids []uint
	if err := r.DB.Model(&model.ReviewDoctor{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	picked := r.pickIDs(ids, sampleSize(n))
	if len(picked) == 0 {
		return []model.ReviewDoctor{}, nil
	}
	var rows []model.ReviewDoctor
	if err := r.DB.Where("id IN ?", picked).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.ReviewDoctor, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]model.ReviewDoctor, 0, len(picked))
	for _, id := range picked {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
