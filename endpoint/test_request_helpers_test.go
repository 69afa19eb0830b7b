package endpoint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type requestSpec struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
	cookies []*http.Cookie
}

type apiResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    map[string]interface{} `json:"-"`
	List    []interface{}          `json:"-"`
	RawData json.RawMessage        `json:"data"`
}

func performRequest(t *testing.T, r http.Handler, spec requestSpec) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	setJSONHeader := false
	switch v := spec.body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(v)
		setJSONHeader = true
	default:
		b, err := json.Marshal(spec.body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
		setJSONHeader = true
	}

	req := httptest.NewRequest(spec.method, spec.path, reader)
	if setJSONHeader {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.token != "" {
		req.Header.Set("Authorization", "Bearer "+spec.token)
	}
	for key, value := range spec.headers {
		req.Header.Set(key, value)
	}
	for _, c := range spec.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
		if len(resp.RawData) > 0 {
			switch resp.RawData[0] {
			case '{':
				require.NoError(t, json.Unmarshal(resp.RawData, &resp.Data))
			case '[':
				require.NoError(t, json.Unmarshal(resp.RawData, &resp.List))
			}
		}
	}
	return w, resp
}

// object returns data[key] as a JSON object.
func object(t *testing.T, data map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	v, ok := data[key].(map[string]interface{})
	require.True(t, ok, "data[%q] is not an object: %v", key, data[key])
	return v
}

// idOf reads the gorm primary key of a decoded record.
func idOf(t *testing.T, record map[string]interface{}) uint {
	t.Helper()
	v, ok := record["ID"].(float64)
	require.True(t, ok, "record has no ID: %v", record)
	return uint(v)
}
