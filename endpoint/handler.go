package endpoint

import (
	"time"

	"github.com/ariebrainware/telemed-api/config"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// Handler carries the collaborators shared by every route. Services that
// need storage are built per request from the injected DB handle.
type Handler struct {
	Config     *config.Config
	Sessions   *service.SessionIssuer
	Mailer     util.Mailer
	Google     service.GoogleVerifier
	StatsCache *cache.Cache
	Uploads    util.UploadStore
	Now        func() time.Time
}

// NewHandler wires a Handler from cfg.
func NewHandler(cfg *config.Config, mailer util.Mailer, google service.GoogleVerifier) *Handler {
	return &Handler{
		Config: cfg,
		Sessions: &service.SessionIssuer{
			Secret:     []byte(cfg.JWTSecret),
			PatientTTL: cfg.PatientTokenTTL,
			DoctorTTL:  cfg.DoctorSessionTTL,
		},
		Mailer:     mailer,
		Google:     google,
		StatsCache: service.NewStatisticsCache(),
		Uploads: util.UploadStore{
			Mode:         cfg.UploadMode,
			Dir:          cfg.UploadDir,
			PublicPrefix: "/uploads",
		},
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) stats(db *gorm.DB) *service.Statistics {
	return &service.Statistics{DB: db, Cache: h.StatsCache}
}

func (h *Handler) credentials(db *gorm.DB) *service.CredentialStore {
	return &service.CredentialStore{
		DB:       db,
		OTPTTL:   h.Config.OTPTTL,
		ResetTTL: h.Config.ResetTokenTTL,
		Now:      h.Now,
		Stats:    h.stats(db),
	}
}

func (h *Handler) appointments(db *gorm.DB) *service.AppointmentLedger {
	return &service.AppointmentLedger{DB: db, Mailer: h.Mailer, Now: h.Now, Stats: h.stats(db)}
}

func (h *Handler) prescriptions(db *gorm.DB) *service.PrescriptionLedger {
	return &service.PrescriptionLedger{DB: db, Now: h.Now, Stats: h.stats(db)}
}

func (h *Handler) healthRecords(db *gorm.DB) *service.HealthRecords {
	return &service.HealthRecords{DB: db, Now: h.Now}
}

func (h *Handler) reviews(db *gorm.DB) *service.Reviews {
	return &service.Reviews{DB: db, Stats: h.stats(db)}
}
