package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/julianpistorius/abaco/auth"
	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/config"
	"github.com/julianpistorius/abaco/stores"
)

// testEnv bundles an API over an in-memory store and a mock broker.
type testEnv struct {
	api    *API
	st     *stores.Set
	mock   *channels.MockAMQPChannel
	e      *echo.Echo
	logger *logrus.Entry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	st := stores.NewSet(client, "abaco")
	svc, mock := channels.NewMockService()
	t.Cleanup(func() { svc.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("service", "test")

	cfg := &config.Config{Web: config.WebConfig{Case: "snake"}}
	return &testEnv{
		api:    New(cfg, st, svc, entry),
		st:     st,
		mock:   mock,
		e:      echo.New(),
		logger: entry,
	}
}

// testIdentity is the default caller in handler tests.
func testIdentity() auth.Identity {
	return auth.Identity{
		Tenant:        "dev",
		User:          "jdoe",
		APIServer:     "https://api.example.com",
		JWTHeaderName: "X-JWT-Assertion",
	}
}

// invoke runs one handler against a request with the identity and route
// params installed, converting handler errors through the error handler so
// tests observe the real status codes and envelopes.
func (env *testEnv) invoke(t *testing.T, h echo.HandlerFunc, req *http.Request, id auth.Identity, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	auth.SetIdentity(c, id)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := h(c); err != nil {
		HTTPErrorHandler(env.logger)(err, c)
	}
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func getRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func deleteRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodDelete, target, nil)
}

// envelope is the decoded response body of either the success or the error
// shape.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Result  interface{} `json:"result"`
	Version string      `json:"version"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func resultMap(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	m, ok := env.Result.(map[string]interface{})
	require.True(t, ok, "result is not an object: %v", env.Result)
	return m
}

// createActor registers an actor through the handler and returns its
// user-visible id.
func (env *testEnv) createActor(t *testing.T, id auth.Identity, body string) string {
	t.Helper()
	rec := env.invoke(t, env.api.CreateActor, jsonRequest(http.MethodPost, "/actors/v2", body), id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := resultMap(t, decodeEnvelope(t, rec))
	actorID, ok := result["id"].(string)
	require.True(t, ok)
	return actorID
}
