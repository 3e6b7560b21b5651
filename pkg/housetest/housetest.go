// Package housetest runs an in-process fake of the House gateway: the
// identity server's token endpoint plus the devices and sensor logging APIs.
package housetest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/devices"
	"github.com/sannel/house/pkg/houseclient"
	"github.com/sannel/house/pkg/jwtx"
	"github.com/sannel/house/pkg/sensorlogging"
)

// Defaults used when no option overrides them.
const (
	DefaultClientID     = "house-test-client"
	DefaultClientSecret = "house-test-secret"
	DefaultTTL          = time.Hour
)

// Request is a request the server received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// Server is a fake gateway backed by httptest.Server.
type Server struct {
	URL          string
	ClientID     string
	ClientSecret string

	srv          *httptest.Server
	secret       []byte
	clientSecret credential
	ttl          time.Duration

	mu       sync.Mutex
	users    map[string]credential
	devices  []devices.Device
	readings []sensorlogging.Reading
	requests []Request
	tokens   []string
}

// Option configures a Server.
type Option func(*Server)

// WithClient sets the OAuth client credentials the token endpoint accepts.
func WithClient(id, secret string) Option {
	return func(s *Server) {
		s.ClientID = id
		s.ClientSecret = secret
	}
}

// WithUser registers a resource owner.
func WithUser(username, password string) Option {
	return func(s *Server) { s.users[username] = hashSecret(password) }
}

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) { s.ttl = ttl }
}

// NewServer starts a fake gateway that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		ClientID:     DefaultClientID,
		ClientSecret: DefaultClientSecret,
		secret:       []byte(jwtx.NewJTI()),
		ttl:          DefaultTTL,
		users:        make(map[string]credential),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clientSecret = hashSecret(s.ClientSecret)

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc(houseclient.TokenPath, s.handleToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireBearer)
	api.HandleFunc("/Devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/Devices/GetByUuid/{uuid}", s.handleGetDeviceByUUID).Methods(http.MethodGet)
	api.HandleFunc("/Devices/{id:[0-9]+}", s.handleGetDevice).Methods(http.MethodGet)
	api.HandleFunc("/SensorLogging", s.handleLogReading).Methods(http.MethodPost)

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)

	return s
}

// Client returns an HTTP client wired to the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Config returns a session configuration pointing at the server.
func (s *Server) Config() houseclient.Config {
	return houseclient.Config{
		BaseAddress:  s.URL,
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
	}
}

// AddUser registers a resource owner.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = hashSecret(password)
}

// AddDevice registers a device.
func (s *Server) AddDevice(d devices.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, d)
}

// Readings returns the readings logged so far.
func (s *Server) Readings() []sensorlogging.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sensorlogging.Reading(nil), s.readings...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// IssuedTokens returns the access tokens handed out so far.
func (s *Server) IssuedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			apiclient.NewOAuth2Error(http.StatusUnauthorized, apiclient.ErrorCodeInvalidToken, "missing bearer token").WriteError(w)
			return
		}
		if _, err := jwtx.VerifyHS256(token, s.secret, time.Now()); err != nil {
			apiclient.NewOAuth2Error(http.StatusUnauthorized, apiclient.ErrorCodeInvalidToken, err.Error()).WriteError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req houseclient.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiclient.NewOAuth2Error(http.StatusBadRequest, apiclient.ErrorCodeInvalidRequest, "invalid json body").WriteError(w)
		return
	}

	if req.GrantType != houseclient.GrantTypePassword {
		apiclient.NewOAuth2Error(http.StatusBadRequest, apiclient.ErrorCodeUnsupportedGrantType, "unsupported_grant_type").WriteError(w)
		return
	}

	if req.ClientID != s.ClientID || !s.clientSecret.matches(req.ClientSecret) {
		apiclient.NewOAuth2Error(http.StatusBadRequest, apiclient.ErrorCodeInvalidClient, "invalid_client").WriteError(w)
		return
	}

	s.mu.Lock()
	cred, known := s.users[req.Username]
	s.mu.Unlock()
	if !known || !cred.matches(req.Password) {
		apiclient.NewOAuth2Error(http.StatusBadRequest, apiclient.ErrorCodeInvalidGrant, "invalid_username_or_password").WriteError(w)
		return
	}

	claims := jwtx.NewAccessClaims(req.Username, req.ClientID, req.Username,
		[]string{"devices", "sensorlogging"}, s.ttl, s.URL, time.Now())
	token, err := jwtx.SignHS256(claims, s.secret)
	if err != nil {
		apiclient.NewOAuth2Error(http.StatusInternalServerError, apiclient.ErrorCodeServerError, err.Error()).WriteError(w)
		return
	}

	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_in":   int64(s.ttl / time.Second),
		"token_type":   "Bearer",
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	page, errPage := strconv.Atoi(r.URL.Query().Get("page"))
	size, errSize := strconv.Atoi(r.URL.Query().Get("size"))
	if errPage != nil || errSize != nil || page < 0 || size <= 0 {
		writeJSON(w, http.StatusBadRequest, apiclient.ValidationErrorResponse{
			Code:    "validation_error",
			Message: "page and size are required",
		})
		return
	}

	s.mu.Lock()
	all := append([]devices.Device(nil), s.devices...)
	s.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].DisplayOrder < all[j].DisplayOrder })

	start := min(page*size, len(all))
	end := min(start+size, len(all))

	writeJSON(w, http.StatusOK, devices.Page{
		Data:       all[start:end],
		TotalCount: len(all),
		Page:       page,
		PageSize:   size,
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.writeDevice(w, func(d devices.Device) bool { return d.DeviceID == id })
}

func (s *Server) handleGetDeviceByUUID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiclient.ValidationErrorResponse{
			Code:    "validation_error",
			Message: "uuid is malformed",
		})
		return
	}
	s.writeDevice(w, func(d devices.Device) bool { return d.AlternateID == id })
}

func (s *Server) writeDevice(w http.ResponseWriter, match func(devices.Device) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if match(d) {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	apiclient.NewOAuth2Error(http.StatusNotFound, apiclient.ErrorCodeNotFound, "device not found").WriteError(w)
}

func (s *Server) handleLogReading(w http.ResponseWriter, r *http.Request) {
	var reading sensorlogging.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		apiclient.NewOAuth2Error(http.StatusBadRequest, apiclient.ErrorCodeInvalidRequest, "invalid json body").WriteError(w)
		return
	}
	if err := reading.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiclient.ValidationErrorResponse{
			Code:    "validation_error",
			Message: err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.readings = append(s.readings, reading)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, uuid.New())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
