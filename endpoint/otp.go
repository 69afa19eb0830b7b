package endpoint

import (
	"fmt"

	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

type OTPSendRequest struct {
	Role  string `json:"role" binding:"required,oneof=patient doctor" example:"patient"`
	Email string `json:"email" binding:"required,email" example:"ann@example.com"`
}

type OTPResetRequest struct {
	Role     string `json:"role" binding:"required,oneof=patient doctor" example:"patient"`
	Email    string `json:"email" binding:"required,email" example:"ann@example.com"`
	Code     string `json:"code" binding:"required,len=4" example:"0427"`
	Password string `json:"password" binding:"required" example:"newsecret"`
}

// SendOTP godoc
// @Summary      Send a one-time code
// @Description  Mails a 4-digit code for password reset. A new code replaces the previous one.
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request body OTPSendRequest true "Account"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "No account with this email"
// @Router       /otp/send [post]
func (h *Handler) SendOTP(c *gin.Context) {
	var req OTPSendRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	otp, err := h.credentials(db).GenerateOneTimeCode(req.Role, req.Email)
	if err != nil {
		respondServiceError(c, err, "Could not issue a code")
		return
	}

	minutes := int(h.Config.OTPTTL.Minutes())
	err = h.Mailer.Send(c.Request.Context(), util.Email{
		ToName:    otp.Name,
		ToAddress: otp.Email,
		Subject:   "Your verification code",
		PlainText: fmt.Sprintf("Your code is %s. It expires in %d minutes.\n", otp.Code, minutes),
		HTML:      fmt.Sprintf("<p>Your code is <strong>%s</strong>. It expires in %d minutes.</p>", otp.Code, minutes),
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not send the code", Err: err})
		return
	}

	ci := clientOf(c)
	util.LogOTPIssued(util.LoginParams{Role: req.Role, UserID: otp.UserID, Email: otp.Email, IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Code sent", Data: gin.H{"expiresAt": otp.ExpiresAt}})
}

// ResetWithOTP godoc
// @Summary      Reset password with a one-time code
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request body OTPResetRequest true "Code and new password"
// @Success      200 {object} util.APIResponse
// @Failure      400 {object} util.APIResponse "Invalid or expired code, or weak password"
// @Router       /otp/reset [post]
func (h *Handler) ResetWithOTP(c *gin.Context) {
	var req OTPResetRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	id, err := h.credentials(db).ResetWithOneTimeCode(req.Role, req.Email, req.Code, req.Password)
	if err != nil {
		respondServiceError(c, err, "Password reset failed")
		return
	}
	ci := clientOf(c)
	util.LogPasswordChanged(util.LoginParams{Role: req.Role, UserID: id, Email: req.Email, IP: ci.IP, UserAgent: ci.Agent, Reason: "one-time code"})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Password updated"})
}
