package service

import (
	"fmt"
	"strings"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
)

// PatientProfileUpdate carries the fields a patient may change. Nil fields
// are left untouched.
type PatientProfileUpdate struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	NationalID  *string `json:"nationalId"`
	FullName    *string `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      *string `json:"gender"`
	BloodGroup  *string `json:"bloodGroup"`
	Address     *string `json:"address"`
}

// DoctorProfileUpdate carries the fields a doctor may change. The
// registration number is fixed at sign-up.
type DoctorProfileUpdate struct {
	Username        *string  `json:"username"`
	Email           *string  `json:"email"`
	FullName        *string  `json:"fullName"`
	Specialization  *string  `json:"specialization"`
	Designation     *string  `json:"designation"`
	Hospital        *string  `json:"hospital"`
	PhoneNumber     *string  `json:"phoneNumber"`
	Gender          *string  `json:"gender"`
	ConsultationFee *float64 `json:"consultationFee"`
	Experience      *int     `json:"experience"`
	About           *string  `json:"about"`
}

// DoctorFilter narrows ListDoctors.
type DoctorFilter struct {
	Specialization string
	Search         string
	RegisteredOnly bool
	Limit          int
	Offset         int
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func requiredValue(src *string, name string) error {
	if src != nil && strings.TrimSpace(*src) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, name)
	}
	return nil
}

// UpdatePatientProfile applies upd to the patient. Unique fields are
// rechecked by the storage index.
func (s *CredentialStore) UpdatePatientProfile(id uint, upd PatientProfileUpdate) (*model.Patient, error) {
	if err := requiredValue(upd.Username, "username"); err != nil {
		return nil, err
	}
	if err := requiredValue(upd.Email, "email"); err != nil {
		return nil, err
	}

	patient, err := s.GetPatient(id)
	if err != nil {
		return nil, err
	}
	emailChanged := false
	setTrimmed(&patient.Username, upd.Username)
	if upd.Email != nil {
		email := util.NormalizeEmail(*upd.Email)
		emailChanged = email != patient.Email
		patient.Email = email
	}
	if upd.NationalID != nil {
		patient.NationalID = optionalString(*upd.NationalID)
	}
	if upd.FullName != nil {
		patient.FullName = util.NormalizeName(*upd.FullName)
	}
	setTrimmed(&patient.PhoneNumber, upd.PhoneNumber)
	setTrimmed(&patient.DateOfBirth, upd.DateOfBirth)
	setTrimmed(&patient.Gender, upd.Gender)
	setTrimmed(&patient.BloodGroup, upd.BloodGroup)
	setTrimmed(&patient.Address, upd.Address)

	if err := s.DB.Save(patient).Error; err != nil {
		return nil, translateWriteError(err)
	}
	if emailChanged {
		util.IdentityEmailCacheDelete(model.RolePatient, patient.ID)
	}
	return patient, nil
}

// UpdateDoctorProfile applies upd to the doctor.
func (s *CredentialStore) UpdateDoctorProfile(id uint, upd DoctorProfileUpdate) (*model.Doctor, error) {
	for name, v := range map[string]*string{"username": upd.Username, "email": upd.Email, "full name": upd.FullName} {
		if err := requiredValue(v, name); err != nil {
			return nil, err
		}
	}
	if (upd.ConsultationFee != nil && *upd.ConsultationFee < 0) || (upd.Experience != nil && *upd.Experience < 0) {
		return nil, fmt.Errorf("%w: fee and experience cannot be negative", ErrInvalidInput)
	}

	doctor, err := s.GetDoctor(id)
	if err != nil {
		return nil, err
	}
	emailChanged := false
	setTrimmed(&doctor.Username, upd.Username)
	if upd.Email != nil {
		email := util.NormalizeEmail(*upd.Email)
		emailChanged = email != doctor.Email
		doctor.Email = email
	}
	if upd.FullName != nil {
		doctor.FullName = util.NormalizeName(*upd.FullName)
	}
	setTrimmed(&doctor.Specialization, upd.Specialization)
	setTrimmed(&doctor.Designation, upd.Designation)
	setTrimmed(&doctor.Hospital, upd.Hospital)
	setTrimmed(&doctor.PhoneNumber, upd.PhoneNumber)
	setTrimmed(&doctor.Gender, upd.Gender)
	setTrimmed(&doctor.About, upd.About)
	if upd.ConsultationFee != nil {
		doctor.ConsultationFee = *upd.ConsultationFee
	}
	if upd.Experience != nil {
		doctor.Experience = *upd.Experience
	}

	if err := s.DB.Save(doctor).Error; err != nil {
		return nil, translateWriteError(err)
	}
	if emailChanged {
		util.IdentityEmailCacheDelete(model.RoleDoctor, doctor.ID)
	}
	return doctor, nil
}

// SetProfilePhoto stores the photo path or data URI of an account.
func (s *CredentialStore) SetProfilePhoto(role string, id uint, photo string) error {
	switch role {
	case model.RolePatient:
		patient, err := s.GetPatient(id)
		if err != nil {
			return err
		}
		patient.ProfilePhoto = photo
		return s.DB.Save(patient).Error
	case model.RoleDoctor:
		doctor, err := s.GetDoctor(id)
		if err != nil {
			return err
		}
		doctor.ProfilePhoto = photo
		return s.DB.Save(doctor).Error
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
}

// ListDoctors returns doctors matching f ordered by name.
func (s *CredentialStore) ListDoctors(f DoctorFilter) ([]model.Doctor, error) {
	q := s.DB.Model(&model.Doctor{})
	if spec := strings.TrimSpace(f.Specialization); spec != "" {
		q = q.Where("specialization = ?", spec)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(hospital) LIKE ? OR LOWER(specialization) LIKE ?", like, like, like)
	}
	if f.RegisteredOnly {
		q = q.Where("is_registered = ?", true)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var doctors []model.Doctor
	if err := q.Order("full_name ASC").Limit(limit).Offset(offset).Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}
