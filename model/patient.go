package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrCredentialShape is returned when a patient record carries both or neither
// of a password hash and a Google account link.
var ErrCredentialShape = errors.New("patient must have exactly one of password or google id")

// Patient represents a patient account
// @Description Patient information
type Patient struct {
	gorm.Model
	Username     string     `json:"username" gorm:"column:username;size:64;uniqueIndex;not null" example:"ann"`
	Email        string     `json:"email" gorm:"column:email;size:191;uniqueIndex;not null" example:"ann@example.com"`
	NationalID   *string    `json:"nationalId,omitempty" gorm:"column:national_id;size:64;uniqueIndex" example:"N1"`
	FullName     string     `json:"fullName" gorm:"column:full_name;size:191" example:"Ann Rahman"`
	PhoneNumber  string     `json:"phoneNumber" gorm:"column:phone_number;size:32" example:"01712345678"`
	DateOfBirth  string     `json:"dateOfBirth" gorm:"column:date_of_birth;size:16" example:"1990-04-12"`
	Gender       string     `json:"gender" gorm:"column:gender;size:16" example:"Female"`
	BloodGroup   string     `json:"bloodGroup" gorm:"column:blood_group;size:8" example:"O+"`
	Address      string     `json:"address" gorm:"column:address" example:"12 Lake Rd, Dhaka"`
	ProfilePhoto string     `json:"profilePhoto" gorm:"column:profile_photo;type:text"`
	Password     string     `json:"-" gorm:"column:password"`
	PasswordSalt string     `json:"-" gorm:"column:password_salt"`
	GoogleID     *string    `json:"-" gorm:"column:google_id;size:191;uniqueIndex"`
	OTPCode      string     `json:"-" gorm:"column:otp_code;size:8"`
	OTPExpire    *time.Time `json:"-" gorm:"column:otp_expire"`
	OTPAttempts  int        `json:"-" gorm:"column:otp_attempts;default:0"`
	ResetToken   string     `json:"-" gorm:"column:reset_token;size:64;index"`
	ResetExpire  *time.Time `json:"-" gorm:"column:reset_expire"`
}

// UsesGoogle reports whether the account signs in through Google.
func (p *Patient) UsesGoogle() bool {
	return p.GoogleID != nil && *p.GoogleID != ""
}

// BeforeSave enforces the password / Google exclusivity on every write.
func (p *Patient) BeforeSave(tx *gorm.DB) error {
	hasPassword := p.Password != ""
	if hasPassword == p.UsesGoogle() {
		return ErrCredentialShape
	}
	return nil
}
