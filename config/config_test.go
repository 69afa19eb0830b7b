package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAndConnectDatabase_TestEnv(t *testing.T) {
	t.Setenv("APPENV", "test")

	cfg := LoadConfig()
	require.NotNil(t, cfg)

	db, err := ConnectDatabase()
	require.NoError(t, err)
	require.NotNil(t, db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestConnectDatabase_TestEnvGivesIsolatedDatabases(t *testing.T) {
	t.Setenv("APPENV", "test")

	first, err := ConnectDatabase()
	require.NoError(t, err)
	second, err := ConnectDatabase()
	require.NoError(t, err)

	require.NoError(t, first.Exec("CREATE TABLE marker (id INTEGER)").Error)
	assert.True(t, first.Migrator().HasTable("marker"))
	assert.False(t, second.Migrator().HasTable("marker"))
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PATIENT_TOKEN_TTL", "DOCTOR_SESSION_TTL", "OTP_TTL", "RESET_TOKEN_TTL", "DBDRIVER", "CORS_ORIGINS", "PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, 30*24*time.Hour, cfg.PatientTokenTTL)
	assert.Equal(t, time.Hour, cfg.DoctorSessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.OTPTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APPPORT", "8081")
	t.Setenv("DBDRIVER", "Postgres")
	t.Setenv("DOCTOR_SESSION_TTL", "2h")
	t.Setenv("OTP_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PUBLIC_BASE_URL", "https://care.example/")

	cfg := FromEnv()
	assert.Equal(t, uint16(8081), cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.DoctorSessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.OTPTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://care.example", cfg.PublicBaseURL)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
	assert.False(t, (&Config{AppEnv: "test"}).IsProduction())
}
