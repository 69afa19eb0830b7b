package endpoint

import (
	"fmt"
	"net/http"

	"github.com/ariebrainware/telemed-api/middleware"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter builds the gin engine with every route under /api.
func SetupRouter(db *gorm.DB, h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(gzip.Gzip(gzip.BestSpeed))
	router.Use(middleware.CORSMiddleware(h.Config.CORSOrigins))
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", h.Config.AppName),
		})
	})
	if h.Uploads.Mode == util.UploadModeDisk {
		router.Static(h.Uploads.PublicPrefix, h.Uploads.Dir)
	}

	limited := middleware.RateLimiter(middleware.RateLimitConfig{})
	loginLimited := middleware.RateLimiter(middleware.RateLimitConfig{ResetOnSuccess: true})
	patientOnly := middleware.RequireAuth(h.Sessions, model.RolePatient)
	doctorOnly := middleware.RequireAuth(h.Sessions, model.RoleDoctor)
	anyRole := middleware.RequireAuth(h.Sessions, model.RolePatient, model.RoleDoctor)

	api := router.Group("/api")
	{
		api.POST("/patients/register", h.RegisterPatient)
		api.POST("/patients/login", loginLimited, h.LoginPatient)
		api.POST("/patients/google", limited, h.GoogleSignIn)
		api.POST("/patients/forgot-password", limited, h.ForgotPassword)
		api.POST("/patients/reset-password", limited, h.ResetPassword)

		api.POST("/doctors/register", h.RegisterDoctor)
		api.POST("/doctors/login", loginLimited, h.LoginDoctor)
		api.POST("/doctors/logout", h.LogoutDoctor)
		api.GET("/doctors", h.ListDoctors)
		api.GET("/doctors/:id", h.GetDoctor)

		api.POST("/otp/send", limited, h.SendOTP)
		api.POST("/otp/reset", limited, h.ResetWithOTP)

		api.GET("/reviews/sample", h.SamplePatientReviews)
		api.GET("/doctor-reviews/sample", h.SampleDoctorReviews)
		api.GET("/stats", h.GetStatistics)
	}

	patient := api.Group("")
	patient.Use(patientOnly)
	{
		patient.GET("/patients/me", h.GetPatientProfile)
		patient.PATCH("/patients/me", h.UpdatePatientProfile)
		patient.POST("/patients/me/photo", h.UploadProfilePhoto)
		patient.GET("/patients/me/appointments", h.ListPatientAppointments)
		patient.GET("/patients/me/prescriptions", h.ListPatientPrescriptions)
		patient.POST("/appointments", h.BookAppointment)
		patient.GET("/health-data", h.GetHealthData)
		patient.POST("/health-data", h.AddHealthMetric)
		patient.DELETE("/health-data", h.DeleteHealthMetric)
		patient.POST("/reviews", h.SubmitPatientReview)
	}

	doctor := api.Group("")
	doctor.Use(doctorOnly)
	{
		doctor.GET("/doctors/me", h.GetDoctorProfile)
		doctor.PATCH("/doctors/me", h.UpdateDoctorProfile)
		doctor.POST("/doctors/me/photo", h.UploadProfilePhoto)
		doctor.GET("/doctors/me/appointments", h.ListDoctorAppointments)
		doctor.GET("/doctors/me/appointments/export", h.ExportDoctorAppointments)
		doctor.GET("/doctors/me/prescriptions", h.ListDoctorPrescriptions)
		doctor.POST("/appointments/:appointmentId/meeting", h.ScheduleMeeting)
		doctor.POST("/prescriptions", h.IssuePrescription)
		doctor.POST("/doctor-reviews", h.SubmitDoctorReview)
	}

	shared := api.Group("")
	shared.Use(anyRole)
	{
		shared.GET("/appointments/:appointmentId", h.GetAppointment)
		shared.PATCH("/appointments/:appointmentId", h.UpdateAppointment)
		shared.DELETE("/appointments/:appointmentId", h.DeleteAppointment)
		shared.GET("/prescriptions/:prescriptionId", h.GetPrescription)
		shared.GET("/prescriptions/appointment/:appointmentId", h.GetPrescriptionByAppointment)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAPIToken(h.Config.APIToken))
	{
		admin.GET("/bmdc", h.ListBmdcRegistry)
		admin.POST("/bmdc/reset", h.ResetBmdcRegistry)
	}

	return router
}
