package endpoint

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ariebrainware/telemed-api/middleware"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerDoctorOnly(t *testing.T, env *testEnv, username, email, bmdc, name string) map[string]interface{} {
	t.Helper()
	code, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/doctors/register",
		body: map[string]interface{}{
			"username":       username,
			"email":          email,
			"bmdcNumber":     bmdc,
			"password":       "secret1",
			"fullName":       name,
			"specialization": "Cardiology",
			"hospital":       "Dhaka Medical College Hospital",
		},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	return resp.Data
}

func doctorLogin(identifier, password, bmdc string) requestSpec {
	return requestSpec{
		method: http.MethodPost,
		path:   "/api/doctors/login",
		body:   map[string]string{"identifier": identifier, "password": password, "bmdcNumber": bmdc},
	}
}

func TestRegisterDoctorStartsUnverified(t *testing.T) {
	env := setupEndpointTest(t)
	doctor := registerDoctorOnly(t, env, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")
	assert.Equal(t, false, doctor["isRegistered"])

	code, _ := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/doctors/register",
		body: map[string]string{
			"username": "karim2", "email": "karim2@example.com", "bmdcNumber": "a-12345",
			"password": "secret1", "fullName": "Dr. Abdul Karim",
		},
	})
	assert.Equal(t, http.StatusBadRequest, code, "registration number is unique")
}

func TestLoginDoctorVerifiesRegistry(t *testing.T) {
	env := setupEndpointTest(t)
	registerDoctorOnly(t, env, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")
	registerDoctorOnly(t, env, "ghost", "ghost@example.com", "Z-99999", "Dr. Nobody")

	code, _ := env.do(t, doctorLogin("karim", "wrong-password", "A-12345"))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, doctorLogin("karim", "secret1", "A-23456"))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, doctorLogin("ghost", "secret1", "Z-99999"))
	assert.Equal(t, http.StatusForbidden, code, "number missing from the registry")

	var ghost model.Doctor
	require.NoError(t, env.db.Where("username = ?", "ghost").First(&ghost).Error)
	assert.False(t, ghost.IsRegistered)

	w, resp := performRequest(t, env.router, doctorLogin("karim@example.com", "secret1", "A-12345"))
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, true, object(t, resp.Data, "doctor")["isRegistered"])

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.DoctorSessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, resp.Data["token"], session.Value)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	code, resp = env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors/me", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "karim@example.com", resp.Data["email"])
}

func TestLogoutDoctorClearsCookie(t *testing.T) {
	env := setupEndpointTest(t)
	w, _ := performRequest(t, env.router, requestSpec{method: http.MethodPost, path: "/api/doctors/logout"})
	require.Equal(t, http.StatusOK, w.Code)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.DoctorSessionCookie {
			cleared = c.MaxAge < 0 && c.Value == ""
		}
	}
	assert.True(t, cleared)
}

func TestLogoutDoctorRecordsSecurityEvent(t *testing.T) {
	env := setupEndpointTest(t)
	util.SetSecurityLoggerDB(env.db)
	t.Cleanup(func() { util.SetSecurityLoggerDB(nil) })
	token, _ := env.registerDoctor(t, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")

	session := &http.Cookie{Name: middleware.DoctorSessionCookie, Value: token}
	code, _ := env.do(t, requestSpec{method: http.MethodPost, path: "/api/doctors/logout", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, code)

	var logs []model.SecurityLog
	require.NoError(t, env.db.Where("event_type = ?", string(util.EventLogout)).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.RoleDoctor, logs[0].Role)

	// Without a session nothing is recorded.
	code, _ = env.do(t, requestSpec{method: http.MethodPost, path: "/api/doctors/logout"})
	require.Equal(t, http.StatusOK, code)
	var count int64
	require.NoError(t, env.db.Model(&model.SecurityLog{}).Where("event_type = ?", string(util.EventLogout)).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDoctorRoutesRejectPatients(t *testing.T) {
	env := setupEndpointTest(t)
	patientToken, _ := env.registerPatient(t, "ann", "ann@example.com")

	for _, path := range []string{"/api/doctors/me", "/api/doctors/me/appointments", "/api/doctors/me/appointments/export"} {
		code, _ := env.do(t, requestSpec{method: http.MethodGet, path: path, token: patientToken})
		assert.Equal(t, http.StatusForbidden, code, path)
	}
}

func TestListAndGetDoctors(t *testing.T) {
	env := setupEndpointTest(t)
	env.registerDoctor(t, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")
	registerDoctorOnly(t, env, "nusrat", "nusrat@example.com", "A-23456", "Dr. Nusrat Jahan")

	code, resp := env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors"})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.List, 2)

	code, resp = env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors?registered=true"})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.List, 1)
	first := resp.List[0].(map[string]interface{})
	assert.Equal(t, "Dr. Abdul Karim", first["fullName"])

	code, resp = env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors?search=nusrat"})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.List, 1)

	id := idOf(t, first)
	code, resp = env.do(t, requestSpec{method: http.MethodGet, path: fmt.Sprintf("/api/doctors/%d", id)})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "karim@example.com", resp.Data["email"])

	code, _ = env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors/9999"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = env.do(t, requestSpec{method: http.MethodGet, path: "/api/doctors/abc"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateDoctorProfile(t *testing.T) {
	env := setupEndpointTest(t)
	token, _ := env.registerDoctor(t, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")

	code, resp := env.do(t, requestSpec{
		method: http.MethodPatch,
		path:   "/api/doctors/me",
		token:  token,
		body:   map[string]interface{}{"consultationFee": 800, "about": "Heart specialist"},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, float64(800), resp.Data["consultationFee"])
	assert.Equal(t, "A-12345", resp.Data["bmdcNumber"])
}

func TestExportDoctorAppointments(t *testing.T) {
	env := setupEndpointTest(t)
	f := newAppointmentFixture(t, env)
	f.book(t)

	w, _ := performRequest(t, env.router, requestSpec{
		method: http.MethodGet,
		path:   "/api/doctors/me/appointments/export",
		token:  f.doctorToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"appointments-")
	// xlsx files are zip archives.
	assert.Equal(t, "PK", w.Body.String()[:2])
}
