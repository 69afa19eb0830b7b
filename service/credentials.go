package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"gorm.io/gorm"
)

const (
	defaultOTPTTL   = 15 * time.Minute
	defaultResetTTL = time.Hour
)

// CredentialStore owns patient and doctor accounts: registration, password
// checks, one-time codes, reset links and Google sign-in.
type CredentialStore struct {
	DB       *gorm.DB
	OTPTTL   time.Duration
	ResetTTL time.Duration
	Now      func() time.Time
	Stats    *Statistics
}

func (s *CredentialStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CredentialStore) otpTTL() time.Duration {
	if s.OTPTTL > 0 {
		return s.OTPTTL
	}
	return defaultOTPTTL
}

func (s *CredentialStore) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return defaultResetTTL
}

// PatientRegistration is the input of RegisterPatient.
type PatientRegistration struct {
	Username    string
	Email       string
	NationalID  string
	Password    string
	FullName    string
	PhoneNumber string
	DateOfBirth string
	Gender      string
	BloodGroup  string
	Address     string
}

// DoctorRegistration is the input of RegisterDoctor.
type DoctorRegistration struct {
	Username        string
	Email           string
	BmdcNumber      string
	Password        string
	FullName        string
	Specialization  string
	Designation     string
	Hospital        string
	PhoneNumber     string
	Gender          string
	ConsultationFee float64
	Experience      int
	About           string
}

// OneTimeCode is a freshly issued code and the account it was issued for.
type OneTimeCode struct {
	Code      string
	ExpiresAt time.Time
	UserID    uint
	Email     string
	Name      string
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// translateWriteError maps unique violations to ErrDuplicateIdentity.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateIdentity
	}
	return err
}

// RegisterPatient creates a password account. A collision on any unique
// field fails with ErrDuplicateIdentity and leaves the existing record alone.
func (s *CredentialStore) RegisterPatient(reg PatientRegistration) (*model.Patient, error) {
	username := strings.TrimSpace(reg.Username)
	email := util.NormalizeEmail(reg.Email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	if err := util.ValidatePasswordStrength(reg.Password); err != nil {
		return nil, err
	}

	nationalID := optionalString(reg.NationalID)
	taken, err := s.patientIdentityTaken(username, email, nationalID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateIdentity
	}

	hash, salt, err := util.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	patient := model.Patient{
		Username:     username,
		Email:        email,
		NationalID:   nationalID,
		FullName:     util.NormalizeName(reg.FullName),
		PhoneNumber:  strings.TrimSpace(reg.PhoneNumber),
		DateOfBirth:  strings.TrimSpace(reg.DateOfBirth),
		Gender:       strings.TrimSpace(reg.Gender),
		BloodGroup:   strings.TrimSpace(reg.BloodGroup),
		Address:      strings.TrimSpace(reg.Address),
		Password:     hash,
		PasswordSalt: salt,
	}
	if err := s.DB.Create(&patient).Error; err != nil {
		return nil, translateWriteError(err)
	}
	s.Stats.Record(model.StatPatients)
	return &patient, nil
}

func (s *CredentialStore) patientIdentityTaken(username, email string, nationalID *string) (bool, error) {
	q := s.DB.Model(&model.Patient{}).Where("username = ? OR email = ?", username, email)
	if nationalID != nil {
		q = q.Or("national_id = ?", *nationalID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RegisterDoctor creates an unverified doctor account. Verification happens
// at login against the registry.
func (s *CredentialStore) RegisterDoctor(reg DoctorRegistration) (*model.Doctor, error) {
	username := strings.TrimSpace(reg.Username)
	email := util.NormalizeEmail(reg.Email)
	bmdc := strings.ToUpper(strings.TrimSpace(reg.BmdcNumber))
	fullName := util.NormalizeName(reg.FullName)
	if username == "" || email == "" || bmdc == "" || fullName == "" {
		return nil, fmt.Errorf("%w: username, email, full name and registration number are required", ErrInvalidInput)
	}
	if reg.ConsultationFee < 0 || reg.Experience < 0 {
		return nil, fmt.Errorf("%w: fee and experience cannot be negative", ErrInvalidInput)
	}
	if err := util.ValidatePasswordStrength(reg.Password); err != nil {
		return nil, err
	}

	var count int64
	err := s.DB.Model(&model.Doctor{}).
		Where("username = ? OR email = ? OR bmdc_number = ?", username, email, bmdc).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateIdentity
	}

	hash, salt, err := util.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	doctor := model.Doctor{
		Username:        username,
		Email:           email,
		BmdcNumber:      bmdc,
		FullName:        fullName,
		Specialization:  strings.TrimSpace(reg.Specialization),
		Designation:     strings.TrimSpace(reg.Designation),
		Hospital:        strings.TrimSpace(reg.Hospital),
		PhoneNumber:     strings.TrimSpace(reg.PhoneNumber),
		Gender:          strings.TrimSpace(reg.Gender),
		ConsultationFee: reg.ConsultationFee,
		Experience:      reg.Experience,
		About:           strings.TrimSpace(reg.About),
		Password:        hash,
		PasswordSalt:    salt,
	}
	if err := s.DB.Create(&doctor).Error; err != nil {
		return nil, translateWriteError(err)
	}
	s.Stats.Record(model.StatDoctors)
	return &doctor, nil
}

// AuthenticatePatient checks identifier (username or email) and password.
func (s *CredentialStore) AuthenticatePatient(identifier, password string) (*model.Patient, error) {
	var patient model.Patient
	err := s.DB.Where("username = ? OR email = ?", strings.TrimSpace(identifier), util.NormalizeEmail(identifier)).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if patient.UsesGoogle() {
		return nil, ErrInvalidCredentials
	}
	if err := checkPassword(password, patient.Password, patient.PasswordSalt); err != nil {
		return nil, err
	}
	return &patient, nil
}

// AuthenticateDoctor checks identifier (username or email) and password.
// Registry verification is a separate step, see VerifyDoctorRegistration.
func (s *CredentialStore) AuthenticateDoctor(identifier, password string) (*model.Doctor, error) {
	var doctor model.Doctor
	err := s.DB.Where("username = ? OR email = ?", strings.TrimSpace(identifier), util.NormalizeEmail(identifier)).
		First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password, doctor.Password, doctor.PasswordSalt); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func checkPassword(plain, hash, salt string) error {
	ok, err := util.VerifyPassword(plain, hash, salt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// VerifyDoctorRegistration requires bmdcNumber to match both the doctor's
// stored number and a registry entry with the doctor's name. On success the
// doctor is marked registered; on failure the flag is left as it was.
func (s *CredentialStore) VerifyDoctorRegistration(doctor *model.Doctor, bmdcNumber string) error {
	submitted := strings.TrimSpace(bmdcNumber)
	if submitted == "" || !strings.EqualFold(submitted, doctor.BmdcNumber) {
		return ErrRegistryVerificationFailed
	}

	var entry model.BmdcDoctor
	err := s.DB.Where("bmdc = ?", doctor.BmdcNumber).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRegistryVerificationFailed
	}
	if err != nil {
		return err
	}
	if !strings.EqualFold(util.NormalizeName(entry.Name), util.NormalizeName(doctor.FullName)) {
		return ErrRegistryVerificationFailed
	}

	if doctor.IsRegistered {
		return nil
	}
	if err := s.DB.Model(doctor).Update("is_registered", true).Error; err != nil {
		return err
	}
	doctor.IsRegistered = true
	return nil
}

// GenerateOneTimeCode issues a 4-digit code for the account with email,
// replacing any earlier code.
func (s *CredentialStore) GenerateOneTimeCode(role, email string) (*OneTimeCode, error) {
	code, err := util.GenerateOTP()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.otpTTL())
	email = util.NormalizeEmail(email)

	switch role {
	case model.RolePatient:
		var patient model.Patient
		if err := s.DB.Where("email = ?", email).First(&patient).Error; err != nil {
			return nil, notFoundOr(err)
		}
		if patient.UsesGoogle() {
			return nil, ErrExternalAccount
		}
		patient.OTPCode = code
		patient.OTPExpire = &expiresAt
		patient.OTPAttempts = 0
		if err := s.DB.Save(&patient).Error; err != nil {
			return nil, err
		}
		return &OneTimeCode{Code: code, ExpiresAt: expiresAt, UserID: patient.ID, Email: patient.Email, Name: patient.FullName}, nil
	case model.RoleDoctor:
		var doctor model.Doctor
		if err := s.DB.Where("email = ?", email).First(&doctor).Error; err != nil {
			return nil, notFoundOr(err)
		}
		doctor.OTPCode = code
		doctor.OTPExpire = &expiresAt
		doctor.OTPAttempts = 0
		if err := s.DB.Save(&doctor).Error; err != nil {
			return nil, err
		}
		return &OneTimeCode{Code: code, ExpiresAt: expiresAt, UserID: doctor.ID, Email: doctor.Email, Name: doctor.FullName}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// accountTable returns the model used for role's account rows.
func accountTable(role string) (interface{}, error) {
	switch role {
	case model.RolePatient:
		return &model.Patient{}, nil
	case model.RoleDoctor:
		return &model.Doctor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
}

// MaxOTPAttempts is the number of wrong guesses after which a code is voided.
const MaxOTPAttempts = 5

type otpState struct {
	ID          uint
	OTPCode     string
	OTPExpire   *time.Time
	OTPAttempts int
}

// ConsumeOneTimeCode accepts code once if it matches and has not expired.
// It returns the account id. The code is cleared on success, once it is
// found expired and after MaxOTPAttempts wrong guesses.
func (s *CredentialStore) ConsumeOneTimeCode(role, email, code string) (uint, error) {
	table, err := accountTable(role)
	if err != nil {
		return 0, err
	}

	var state otpState
	err = s.DB.Model(table).Select("id", "otp_code", "otp_expire", "otp_attempts").
		Where("email = ?", util.NormalizeEmail(email)).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrInvalidOrExpiredCode
	}
	if err != nil {
		return 0, err
	}
	if state.OTPCode == "" || state.OTPExpire == nil {
		return 0, ErrInvalidOrExpiredCode
	}

	clear := map[string]interface{}{"otp_code": "", "otp_expire": nil, "otp_attempts": 0}
	if s.now().After(*state.OTPExpire) {
		if err := s.DB.Model(table).Where("id = ?", state.ID).UpdateColumns(clear).Error; err != nil {
			return 0, err
		}
		return 0, ErrInvalidOrExpiredCode
	}
	if !util.SecureCompare(state.OTPCode, strings.TrimSpace(code)) {
		update := map[string]interface{}{"otp_attempts": gorm.Expr("otp_attempts + 1")}
		if state.OTPAttempts+1 >= MaxOTPAttempts {
			update = clear
		}
		if err := s.DB.Model(table).Where("id = ? AND otp_code = ?", state.ID, state.OTPCode).UpdateColumns(update).Error; err != nil {
			return 0, err
		}
		return 0, ErrInvalidOrExpiredCode
	}

	// Conditional clear so two concurrent consumers cannot both succeed.
	res := s.DB.Model(table).Where("id = ? AND otp_code = ?", state.ID, state.OTPCode).UpdateColumns(clear)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrInvalidOrExpiredCode
	}
	return state.ID, nil
}

// ResetWithOneTimeCode checks the new password, consumes code and sets the
// password of the account.
func (s *CredentialStore) ResetWithOneTimeCode(role, email, code, newPassword string) (uint, error) {
	if err := util.ValidatePasswordStrength(newPassword); err != nil {
		return 0, err
	}
	id, err := s.ConsumeOneTimeCode(role, email, code)
	if err != nil {
		return 0, err
	}
	if err := s.ResetCredential(role, id, newPassword); err != nil {
		return 0, err
	}
	return id, nil
}

// ResetCredential rehashes the password of an account and clears its
// pending one-time code and reset link.
func (s *CredentialStore) ResetCredential(role string, id uint, newPassword string) error {
	if err := util.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	hash, salt, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}

	switch role {
	case model.RolePatient:
		var patient model.Patient
		if err := s.DB.First(&patient, id).Error; err != nil {
			return notFoundOr(err)
		}
		if patient.UsesGoogle() {
			return ErrExternalAccount
		}
		patient.Password = hash
		patient.PasswordSalt = salt
		patient.OTPCode = ""
		patient.OTPExpire = nil
		patient.ResetToken = ""
		patient.ResetExpire = nil
		return s.DB.Save(&patient).Error
	case model.RoleDoctor:
		var doctor model.Doctor
		if err := s.DB.First(&doctor, id).Error; err != nil {
			return notFoundOr(err)
		}
		doctor.Password = hash
		doctor.PasswordSalt = salt
		doctor.OTPCode = ""
		doctor.OTPExpire = nil
		return s.DB.Save(&doctor).Error
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
}

// IssuePasswordResetToken creates a reset link token for a patient. Only
// the sha256 of the token is stored; the raw token is returned for mailing.
func (s *CredentialStore) IssuePasswordResetToken(email string) (string, *model.Patient, error) {
	var patient model.Patient
	if err := s.DB.Where("email = ?", util.NormalizeEmail(email)).First(&patient).Error; err != nil {
		return "", nil, notFoundOr(err)
	}
	if patient.UsesGoogle() {
		return "", nil, ErrExternalAccount
	}

	raw, err := util.GenerateResetToken()
	if err != nil {
		return "", nil, err
	}
	expiresAt := s.now().Add(s.resetTTL())
	patient.ResetToken = util.HashToken(raw)
	patient.ResetExpire = &expiresAt
	if err := s.DB.Save(&patient).Error; err != nil {
		return "", nil, err
	}
	return raw, &patient, nil
}

// ResetPasswordWithToken sets a new password using a reset link token.
// The token is single use.
func (s *CredentialStore) ResetPasswordWithToken(raw, newPassword string) (*model.Patient, error) {
	if err := util.ValidatePasswordStrength(newPassword); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidOrExpiredCode
	}
	hashed := util.HashToken(strings.TrimSpace(raw))

	var patient model.Patient
	err := s.DB.Where("reset_token = ?", hashed).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}

	clear := map[string]interface{}{"reset_token": "", "reset_expire": nil}
	res := s.DB.Model(&model.Patient{}).Where("id = ? AND reset_token = ?", patient.ID, hashed).UpdateColumns(clear)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidOrExpiredCode
	}
	if patient.ResetExpire == nil || s.now().After(*patient.ResetExpire) {
		return nil, ErrInvalidOrExpiredCode
	}

	if err := s.ResetCredential(model.RolePatient, patient.ID, newPassword); err != nil {
		return nil, err
	}
	return &patient, nil
}

// SignInWithGoogle binds a verified Google identity to a patient account.
// An existing link is reused; an email already registered without this
// link fails with ErrAccountConflict; otherwise a new patient is created.
// created reports whether a new account was made.
func (s *CredentialStore) SignInWithGoogle(identity GoogleIdentity) (patient *model.Patient, created bool, err error) {
	if identity.Subject == "" || identity.Email == "" {
		return nil, false, fmt.Errorf("%w: google identity is incomplete", ErrInvalidInput)
	}
	email := util.NormalizeEmail(identity.Email)

	var linked model.Patient
	err = s.DB.Where("google_id = ?", identity.Subject).First(&linked).Error
	if err == nil {
		return &linked, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var count int64
	if err := s.DB.Model(&model.Patient{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, false, err
	}
	if count > 0 {
		return nil, false, ErrAccountConflict
	}

	username, err := googleUsername(email)
	if err != nil {
		return nil, false, err
	}
	subject := identity.Subject
	fresh := model.Patient{
		Username:     username,
		Email:        email,
		FullName:     util.NormalizeName(identity.Name),
		ProfilePhoto: identity.Picture,
		GoogleID:     &subject,
	}
	if err := s.DB.Create(&fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent first sign-in of the same account.
			if err := s.DB.Where("google_id = ?", subject).First(&linked).Error; err == nil {
				return &linked, false, nil
			}
			return nil, false, ErrDuplicateIdentity
		}
		return nil, false, err
	}
	s.Stats.Record(model.StatPatients)
	return &fresh, true, nil
}

// googleUsername derives "<local part>-<6 hex>" from an email address.
func googleUsername(email string) (string, error) {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return local + "-" + hex.EncodeToString(suffix), nil
}

// GetPatient loads a patient by id.
func (s *CredentialStore) GetPatient(id uint) (*model.Patient, error) {
	var patient model.Patient
	if err := s.DB.First(&patient, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &patient, nil
}

// GetDoctor loads a doctor by id.
func (s *CredentialStore) GetDoctor(id uint) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := s.DB.First(&doctor, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &doctor, nil
}
