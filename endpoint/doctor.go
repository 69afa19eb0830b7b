package endpoint

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariebrainware/telemed-api/middleware"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DoctorRegisterRequest struct {
	Username        string  `json:"username" binding:"required" example:"karim"`
	Email           string  `json:"email" binding:"required,email" example:"karim@example.com"`
	BmdcNumber      string  `json:"bmdcNumber" binding:"required" example:"A-12345"`
	Password        string  `json:"password" binding:"required" example:"secret1"`
	FullName        string  `json:"fullName" binding:"required" example:"Dr. Abdul Karim"`
	Specialization  string  `json:"specialization" example:"Cardiology"`
	Designation     string  `json:"designation" example:"Consultant"`
	Hospital        string  `json:"hospital" example:"Dhaka Medical College Hospital"`
	PhoneNumber     string  `json:"phoneNumber" example:"01812345678"`
	Gender          string  `json:"gender" example:"Male"`
	ConsultationFee float64 `json:"consultationFee" example:"500"`
	Experience      int     `json:"experience" example:"10"`
	About           string  `json:"about"`
}

type DoctorLoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"karim@example.com"`
	Password   string `json:"password" binding:"required" example:"secret1"`
	BmdcNumber string `json:"bmdcNumber" binding:"required" example:"A-12345"`
}

type DoctorSessionResponse struct {
	Doctor    *model.Doctor `json:"doctor"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// setDoctorCookie writes the session cookie. maxAge < 0 deletes it.
func (h *Handler) setDoctorCookie(c *gin.Context, token string, maxAge int) {
	secure := h.Config.IsProduction()
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.DoctorSessionCookie, token, maxAge, "/", "", secure, true)
}

// RegisterDoctor godoc
// @Summary      Register a doctor
// @Description  The account stays unverified until the first login checks the registry
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        request body DoctorRegisterRequest true "Doctor details"
// @Success      201 {object} util.APIResponse{data=model.Doctor}
// @Failure      400 {object} util.APIResponse "Invalid payload or duplicate identity"
// @Router       /doctors/register [post]
func (h *Handler) RegisterDoctor(c *gin.Context) {
	var req DoctorRegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctor, err := h.credentials(db).RegisterDoctor(service.DoctorRegistration{
		Username:        req.Username,
		Email:           req.Email,
		BmdcNumber:      req.BmdcNumber,
		Password:        req.Password,
		FullName:        req.FullName,
		Specialization:  req.Specialization,
		Designation:     req.Designation,
		Hospital:        req.Hospital,
		PhoneNumber:     req.PhoneNumber,
		Gender:          req.Gender,
		ConsultationFee: req.ConsultationFee,
		Experience:      req.Experience,
		About:           req.About,
	})
	if err != nil {
		respondServiceError(c, err, "Registration failed")
		return
	}
	ci := clientOf(c)
	util.LogSignupSuccess(util.LoginParams{Role: model.RoleDoctor, UserID: doctor.ID, Email: doctor.Email, IP: ci.IP, UserAgent: ci.Agent})
	util.CallCreated(c, util.APISuccessParams{Msg: "Doctor registered", Data: doctor})
}

// LoginDoctor godoc
// @Summary      Doctor login
// @Description  Checks the password, then the registration number against the registry
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        request body DoctorLoginRequest true "Credentials"
// @Success      200 {object} util.APIResponse{data=DoctorSessionResponse}
// @Failure      401 {object} util.APIResponse "Invalid credentials"
// @Failure      403 {object} util.APIResponse "Registry verification failed"
// @Router       /doctors/login [post]
func (h *Handler) LoginDoctor(c *gin.Context) {
	var req DoctorLoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientOf(c)
	store := h.credentials(db)
	doctor, err := store.AuthenticateDoctor(req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			util.LogLoginFailure(util.LoginParams{Role: model.RoleDoctor, Email: req.Identifier, IP: ci.IP, UserAgent: ci.Agent, Reason: "invalid credentials"})
		}
		respondServiceError(c, err, "Invalid username/email or password")
		return
	}

	if err := store.VerifyDoctorRegistration(doctor, req.BmdcNumber); err != nil {
		if errors.Is(err, service.ErrRegistryVerificationFailed) {
			util.LogRegistryCheckFailed(util.LoginParams{Role: model.RoleDoctor, UserID: doctor.ID, Email: doctor.Email, IP: ci.IP, UserAgent: ci.Agent, Reason: "bmdc " + req.BmdcNumber})
		}
		respondServiceError(c, err, "BMDC registration could not be verified")
		return
	}

	token, expiresAt, err := h.Sessions.Issue(service.Identity{ID: doctor.ID, Role: model.RoleDoctor})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}
	h.setDoctorCookie(c, token, int(h.Sessions.TTL(model.RoleDoctor).Seconds()))
	util.LogLoginSuccess(util.LoginParams{Role: model.RoleDoctor, UserID: doctor.ID, Email: doctor.Email, IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: DoctorSessionResponse{Doctor: doctor, Token: token, ExpiresAt: expiresAt},
	})
}

// LogoutDoctor clears the session cookie. Tokens are stateless, so a copy
// kept by the client stays valid until it expires.
// The route is public; the logout is only logged for a valid doctor session.
func (h *Handler) LogoutDoctor(c *gin.Context) {
	h.setDoctorCookie(c, "", -1)
	if who, err := h.Sessions.Validate(middleware.SessionToken(c)); err == nil && who.Role == model.RoleDoctor {
		ci := clientOf(c)
		util.LogLogout(util.LoginParams{Role: who.Role, UserID: who.ID, IP: ci.IP, UserAgent: ci.Agent})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logged out"})
}

// ListDoctors godoc
// @Summary      List doctors
// @Tags         Doctor
// @Produce      json
// @Param        specialization query string false "Exact specialization"
// @Param        search         query string false "Matches name, hospital or specialization"
// @Param        registered     query bool   false "Only registry-verified doctors"
// @Param        limit          query int    false "Page size (max 100)"
// @Param        offset         query int    false "Offset"
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Router       /doctors [get]
func (h *Handler) ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	registered, _ := strconv.ParseBool(c.DefaultQuery("registered", "false"))

	doctors, err := h.credentials(db).ListDoctors(service.DoctorFilter{
		Specialization: c.Query("specialization"),
		Search:         c.Query("search"),
		RegisteredOnly: registered,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		respondServiceError(c, err, "Could not load doctors")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// GetDoctor returns one doctor's public profile.
func (h *Handler) GetDoctor(c *gin.Context) {
	id, ok := uintParamOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, err := h.credentials(db).GetDoctor(id)
	if err != nil {
		respondServiceError(c, err, "Doctor not found")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor retrieved", Data: doctor})
}

func (h *Handler) GetDoctorProfile(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, err := h.credentials(db).GetDoctor(who.ID)
	if err != nil {
		respondServiceError(c, err, "Doctor not found")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor retrieved", Data: doctor})
}

func (h *Handler) UpdateDoctorProfile(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	var req service.DoctorProfileUpdate
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, err := h.credentials(db).UpdateDoctorProfile(who.ID, req)
	if err != nil {
		respondServiceError(c, err, "Profile update failed")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile updated", Data: doctor})
}

// ListDoctorAppointments returns the caller's appointments, optionally
// narrowed by ?status=.
func (h *Handler) ListDoctorAppointments(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.appointments(db).ListForDoctor(who.ID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err, "Could not load appointments")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: list})
}

// ExportDoctorAppointments godoc
// @Summary      Export appointments
// @Description  Downloads the caller's appointments as an Excel workbook
// @Tags         Doctor
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status query string false "Filter by status"
// @Success      200 {file} file
// @Router       /doctors/me/appointments/export [get]
func (h *Handler) ExportDoctorAppointments(c *gin.Context) {
	who, ok := identityOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	list, err := h.appointments(db).ListForDoctor(who.ID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err, "Could not load appointments")
		return
	}

	var buf bytes.Buffer
	if err := util.WriteAppointmentsExcel(&buf, list); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not build the export", Err: err})
		return
	}
	filename := fmt.Sprintf("appointments-%s.xlsx", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
