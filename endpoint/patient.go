package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

type PatientRegisterRequest struct {
	Username    string `json:"username" binding:"required" example:"ann"`
	Email       string `json:"email" binding:"required,email" example:"ann@example.com"`
	NationalID  string `json:"nationalId" example:"N1"`
	Password    string `json:"password" binding:"required" example:"secret1"`
	FullName    string `json:"fullName" example:"Ann Rahman"`
	PhoneNumber string `json:"phoneNumber" example:"01712345678"`
	DateOfBirth string `json:"dateOfBirth" example:"1990-04-12"`
	Gender      string `json:"gender" example:"Female"`
	BloodGroup  string `json:"bloodGroup" example:"O+"`
	Address     string `json:"address"`
}

type PatientLoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"ann@example.com"`
	Password   string `json:"password" binding:"required" example:"secret1"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email" example:"ann@example.com"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required" example:"newsecret"`
}

type PatientSessionResponse struct {
	Patient   *model.Patient `json:"patient"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Created   bool           `json:"created,omitempty"`
}

func (h *Handler) issuePatientSession(c *gin.Context, patient *model.Patient) (PatientSessionResponse, bool) {
	token, expiresAt, err := h.Sessions.Issue(service.Identity{ID: patient.ID, Role: model.RolePatient})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return PatientSessionResponse{}, false
	}
	return PatientSessionResponse{Patient: patient, Token: token, ExpiresAt: expiresAt}, true
}

// RegisterPatient godoc
// @Summary      Register a patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        request body PatientRegisterRequest true "Patient details"
// @Success      201 {object} util.APIResponse{data=PatientSessionResponse}
// @Failure      400 {object} util.APIResponse "Invalid payload or duplicate identity"
// @Router       /patients/register [post]
func (h *Handler) RegisterPatient(c *gin.Context) {
	var req PatientRegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, err := h.credentials(db).RegisterPatient(service.PatientRegistration{
		Username:    req.Username,
		Email:       req.Email,
		NationalID:  req.NationalID,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		BloodGroup:  req.BloodGroup,
		Address:     req.Address,
	})
	if err != nil {
		respondServiceError(c, err, "Registration failed")
		return
	}

	ci := clientOf(c)
	util.LogSignupSuccess(util.LoginParams{Role: model.RolePatient, UserID: patient.ID, Email: patient.Email, IP: ci.IP, UserAgent: ci.Agent})
	resp, ok := h.issuePatientSession(c, patient)
	if !ok {
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Patient registered", Data: resp})
}

// LoginPatient godoc
// @Summary      Patient login
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        request body PatientLoginRequest true "Credentials"
// @Success      200 {object} util.APIResponse{data=PatientSessionResponse}
// @Failure      401 {object} util.APIResponse "Invalid credentials"
// @Router       /patients/login [post]
func (h *Handler) LoginPatient(c *gin.Context) {
	var req PatientLoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientOf(c)
	patient, err := h.credentials(db).AuthenticatePatient(req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			util.LogLoginFailure(util.LoginParams{Role: model.RolePatient, Email: req.Identifier, IP: ci.IP, UserAgent: ci.Agent, Reason: "invalid credentials"})
		}
		respondServiceError(c, err, "Invalid username/email or password")
		return
	}

	resp, ok := h.issuePatientSession(c, patient)
	if !ok {
		return
	}
	util.LogLoginSuccess(util.LoginParams{Role: model.RolePatient, UserID: patient.ID, Email: patient.Email, IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: resp})
}

// GoogleSignIn exchanges a Google ID token for a patient session.
func (h *Handler) GoogleSignIn(c *gin.Context) {
	var req GoogleSignInRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if h.Google == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Google sign-in is not configured", Err: errors.New("no google verifier")})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	identity, err := h.Google.Verify(ctx, req.IDToken)
	if err != nil {
		respondServiceError(c, fmt.Errorf("%w: %v", service.ErrInvalidToken, err), "Google token could not be verified")
		return
	}

	ci := clientOf(c)
	patient, created, err := h.credentials(db).SignInWithGoogle(identity)
	if err != nil {
		if errors.Is(err, service.ErrAccountConflict) {
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventAccountConflict,
				Role:      model.RolePatient,
				Email:     identity.Email,
				IP:        ci.IP,
				UserAgent: ci.Agent,
				Message:   "Google sign-in for an email registered with a password",
			})
			respondServiceError(c, err, "This email is already registered. Log in with your password.")
			return
		}
		respondServiceError(c, err, "Google sign-in failed")
		return
	}

	resp, ok := h.issuePatientSession(c, patient)
	if !ok {
		return
	}
	resp.Created = created
	if created {
		util.LogSignupSuccess(util.LoginParams{Role: model.RolePatient, UserID: patient.ID, Email: patient.Email, IP: ci.IP, UserAgent: ci.Agent})
	}
	util.LogLoginSuccess(util.LoginParams{Role: model.RolePatient, UserID: patient.ID, Email: patient.Email, IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: resp})
}

// ForgotPassword mails a single-use password reset link.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	raw, patient, err := h.credentials(db).IssuePasswordResetToken(req.Email)
	if err != nil {
		respondServiceError(c, err, "Could not issue a reset link")
		return
	}

	link := fmt.Sprintf("%s/reset-password/%s", h.Config.PublicBaseURL, raw)
	mail := util.Email{
		ToName:    patient.FullName,
		ToAddress: patient.Email,
		Subject:   "Reset your password",
		PlainText: fmt.Sprintf("Open this link within %s to choose a new password:\n%s\n", h.Config.ResetTokenTTL, link),
		HTML:      fmt.Sprintf("<p>Open <a href=\"%s\">this link</a> within %s to choose a new password.</p>", link, h.Config.ResetTokenTTL),
	}
	if err := h.Mailer.Send(c.Request.Context(), mail); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not send the reset email", Err: err})
		return
	}

	ci := clientOf(c)
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventResetLinkIssued,
		Role:      model.RolePatient,
		UserID:    fmt.Sprintf("%d", patient.ID),
		Email:     patient.Email,
		IP:        ci.IP,
		UserAgent: ci.Agent,
		Message:   "Password reset link issued",
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Password reset link sent"})
}

// ResetPassword sets a new password using a reset link token.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, err := h.credentials(db).ResetPasswordWithToken(req.Token, req.Password)
	if err != nil {
		respondServiceError(c, err, "Password reset failed")
		return
	}
	ci := clientOf(c)
	util.LogPasswordChanged(util.LoginParams{Role: model.RolePatient, UserID: patient.ID, Email: patient.Email, IP: ci.IP, UserAgent: ci.Agent, Reason: "reset link"})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Password updated"})
}

// GetPatientProfile returns the caller's profile.
func (h *Handler) GetPatientProfile(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, err := h.credentials(db).GetPatient(who.ID)
	if err != nil {
		respondServiceError(c, err, "Patient not found")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient retrieved", Data: patient})
}

// UpdatePatientProfile applies a partial profile update.
func (h *Handler) UpdatePatientProfile(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req service.PatientProfileUpdate
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, err := h.credentials(db).UpdatePatientProfile(who.ID, req)
	if err != nil {
		respondServiceError(c, err, "Profile update failed")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile updated", Data: patient})
}

// UploadProfilePhoto stores a multipart "photo" for the caller, patient or doctor.
func (h *Handler) UploadProfilePhoto(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "A photo file is required", Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	stored, err := h.Uploads.SaveFile(fh, fmt.Sprintf("%s-%d", who.Role, who.ID))
	if err != nil {
		respondServiceError(c, err, "Photo upload failed")
		return
	}
	if err := h.credentials(db).SetProfilePhoto(who.Role, who.ID, stored); err != nil {
		respondServiceError(c, err, "Photo upload failed")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Photo updated", Data: gin.H{"profilePhoto": stored}})
}

// ListPatientAppointments returns the caller's appointments.
func (h *Handler) ListPatientAppointments(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.appointments(db).ListForPatient(who.ID)
	if err != nil {
		respondServiceError(c, err, "Could not load appointments")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: list})
}

// ListPatientPrescriptions returns the caller's prescriptions.
func (h *Handler) ListPatientPrescriptions(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.prescriptions(db).ListForPatient(who.ID)
	if err != nil {
		respondServiceError(c, err, "Could not load prescriptions")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescriptions retrieved", Data: list})
}
