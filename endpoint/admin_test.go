package endpoint

import (
	"net/http"
	"testing"

	"github.com/ariebrainware/telemed-api/middleware"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminHeaders = map[string]string{middleware.APITokenHeader: testAPIToken}

func TestAdminRoutesRequireAPIToken(t *testing.T) {
	env := setupEndpointTest(t)

	code, _ := env.do(t, requestSpec{method: http.MethodGet, path: "/api/admin/bmdc"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, requestSpec{
		method:  http.MethodGet,
		path:    "/api/admin/bmdc",
		headers: map[string]string{middleware.APITokenHeader: "wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := env.do(t, requestSpec{method: http.MethodGet, path: "/api/admin/bmdc", headers: adminHeaders})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.List, len(model.DefaultBmdcRegistry))
}

func TestResetBmdcRegistry(t *testing.T) {
	env := setupEndpointTest(t)

	code, resp := env.do(t, requestSpec{
		method:  http.MethodPost,
		path:    "/api/admin/bmdc/reset",
		headers: adminHeaders,
		body: map[string]interface{}{
			"entries": []map[string]string{{"name": "Dr. Test Person", "bmdc": "T-00001"}},
		},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	require.Len(t, resp.List, 1)

	var count int64
	require.NoError(t, env.db.Model(&model.BmdcDoctor{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The replaced registry now drives doctor verification.
	registerDoctorOnly(t, env, "karim", "karim@example.com", "A-12345", "Dr. Abdul Karim")
	code, _ = env.do(t, doctorLogin("karim", "secret1", "A-12345"))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, requestSpec{
		method:  http.MethodPost,
		path:    "/api/admin/bmdc/reset",
		headers: adminHeaders,
		body: map[string]interface{}{
			"entries": []map[string]string{{"name": "A", "bmdc": "X-1"}, {"name": "B", "bmdc": "X-1"}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(t, requestSpec{method: http.MethodPost, path: "/api/admin/bmdc/reset", headers: adminHeaders})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Len(t, resp.List, len(model.DefaultBmdcRegistry))

	code, _ = env.do(t, doctorLogin("karim", "secret1", "A-12345"))
	assert.Equal(t, http.StatusOK, code)
}

func TestResetBmdcRegistryLowercaseEntryVerifies(t *testing.T) {
	env := setupEndpointTest(t)

	code, resp := env.do(t, requestSpec{
		method:  http.MethodPost,
		path:    "/api/admin/bmdc/reset",
		headers: adminHeaders,
		body: map[string]interface{}{
			"entries": []map[string]string{{"name": "Dr. Test Person", "bmdc": "t-00001"}},
		},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)

	registerDoctorOnly(t, env, "tester", "tester@example.com", "t-00001", "Dr. Test Person")
	code, resp = env.do(t, doctorLogin("tester", "secret1", "T-00001"))
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, true, object(t, resp.Data, "doctor")["isRegistered"])
}

func TestStatistics(t *testing.T) {
	env := setupEndpointTest(t)

	code, resp := env.do(t, requestSpec{method: http.MethodGet, path: "/api/stats"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp.Data[model.StatPatients])

	f := newAppointmentFixture(t, env)
	f.book(t)

	code, resp = env.do(t, requestSpec{method: http.MethodGet, path: "/api/stats"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data[model.StatPatients])
	assert.Equal(t, float64(1), resp.Data[model.StatDoctors])
	assert.Equal(t, float64(1), resp.Data[model.StatAppointments])
}
