package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/avatarctic/email-auth/internal/core/domain/notification"
)

// APITestSuite drives the server through a real listener and HTTP client.
type APITestSuite struct {
	suite.Suite
	env    *testEnv
	server *httptest.Server
	client *http.Client
}

func (s *APITestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.server = httptest.NewServer(s.env.srv.Echo())
	s.client = &http.Client{Timeout: 5 * time.Second}
}

func (s *APITestSuite) TearDownTest() {
	s.server.Close()
}

func (s *APITestSuite) post(path string, body any, bearer string) (*http.Response, map[string]any) {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *APITestSuite) TestHealthCheck() {
	resp, err := s.client.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	var health map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal("healthy", health["status"])
	s.Equal("email-auth", health["service"])
}

func (s *APITestSuite) TestVerifyThenLogin() {
	s.env.registerUnverified(s.T(), "erin@example.com")

	resp, _ := s.post("/api/v1/email-verification-requests", map[string]string{"email": "erin@example.com"}, "")
	s.Equal(http.StatusCreated, resp.StatusCode)

	tok := s.env.lastToken(s.T(), notification.TemplateVerifyEmail)
	s.Len(tok, 64)

	resp, body := s.post("/api/v1/email-verifications", map[string]string{"token": tok}, "")
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("erin@example.com", body["email"])

	resp, body = s.post("/api/v1/auth/login", map[string]string{"email": "erin@example.com", "password": initialPassword}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(body["access_token"])
	s.EqualValues(60, body["expires_in"])
}

func (s *APITestSuite) TestUnknownRouteIs404() {
	resp, _ := s.post("/api/v1/nope", map[string]string{}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
