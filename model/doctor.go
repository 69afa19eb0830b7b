package model

import (
	"time"

	"gorm.io/gorm"
)

// Doctor represents a doctor account
// @Description Doctor information
type Doctor struct {
	gorm.Model
	Username        string     `json:"username" gorm:"column:username;size:64;uniqueIndex;not null" example:"drkarim"`
	Email           string     `json:"email" gorm:"column:email;size:191;uniqueIndex;not null" example:"karim@example.com"`
	BmdcNumber      string     `json:"bmdcNumber" gorm:"column:bmdc_number;size:32;uniqueIndex;not null" example:"A-12345"`
	FullName        string     `json:"fullName" gorm:"column:full_name;size:191;not null" example:"Dr. Abdul Karim"`
	Specialization  string     `json:"specialization" gorm:"column:specialization;size:128;index" example:"Cardiology"`
	Designation     string     `json:"designation" gorm:"column:designation;size:128" example:"Consultant"`
	Hospital        string     `json:"hospital" gorm:"column:hospital;size:191" example:"Dhaka Medical College Hospital"`
	PhoneNumber     string     `json:"phoneNumber" gorm:"column:phone_number;size:32" example:"01811111111"`
	Gender          string     `json:"gender" gorm:"column:gender;size:16" example:"Male"`
	ConsultationFee float64    `json:"consultationFee" gorm:"column:consultation_fee" example:"500"`
	Experience      int        `json:"experience" gorm:"column:experience" example:"10"`
	About           string     `json:"about" gorm:"column:about;type:text"`
	ProfilePhoto    string     `json:"profilePhoto" gorm:"column:profile_photo;type:text"`
	IsRegistered    bool       `json:"isRegistered" gorm:"column:is_registered;default:false" example:"false"`
	Password        string     `json:"-" gorm:"column:password;not null"`
	PasswordSalt    string     `json:"-" gorm:"column:password_salt"`
	OTPCode         string     `json:"-" gorm:"column:otp_code;size:8"`
	OTPExpire       *time.Time `json:"-" gorm:"column:otp_expire"`
	OTPAttempts     int        `json:"-" gorm:"column:otp_attempts;default:0"`
}
