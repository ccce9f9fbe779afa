package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"onsd/internal/platform/token"
	"onsd/internal/registry/access"
	"onsd/internal/registry/service"
	"onsd/internal/registry/store/memory"
	"onsd/pkg/domain"
)

// The handler suite runs requests through the real router, middleware,
// service, and memory store, so it covers routing and auth wiring end to end.
type RegistryHandlerSuite struct {
	suite.Suite
	router     chi.Router
	validator  *token.Validator
	ownerToken string
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.validator = token.NewValidator("test-signing-key")

	gate := access.NewStaticGate("owner", nil)
	svc, err := service.New(memory.New(), gate, service.WithLogger(logger))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, s.validator, logger).Register(s.router)

	s.ownerToken, err = s.validator.Sign("owner")
	s.Require().NoError(err)
}

func (s *RegistryHandlerSuite) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.T().Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistryHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	s.T().Helper()
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RegistryHandlerSuite) addCode(key string) {
	s.T().Helper()
	w := s.do(http.MethodPost, "/v1/codes", s.ownerToken, CreateCodeRequest{Key: key})
	s.Require().Equal(http.StatusCreated, w.Code)
}

func (s *RegistryHandlerSuite) TestCodeLifecycle() {
	s.addCode("CODE1")

	s.Run("duplicate create conflicts", func() {
		w := s.do(http.MethodPost, "/v1/codes", s.ownerToken, CreateCodeRequest{Key: "CODE1"})
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("conflict", s.decode(w)["error"])
	})

	s.Run("count reflects the table", func() {
		w := s.do(http.MethodGet, "/v1/codes", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(float64(1), s.decode(w)["count"])
	})

	s.Run("lookup returns the code", func() {
		w := s.do(http.MethodGet, "/v1/codes/CODE1", "", nil)
		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal("CODE1", resp["key"])
		s.Equal(float64(0), resp["children"])
	})

	s.Run("missing code is 404", func() {
		w := s.do(http.MethodGet, "/v1/codes/MISSING", "", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("delete empties the table", func() {
		w := s.do(http.MethodDelete, "/v1/codes/CODE1", s.ownerToken, nil)
		s.Equal(http.StatusNoContent, w.Code)

		w = s.do(http.MethodGet, "/v1/codes", "", nil)
		s.Equal(float64(0), s.decode(w)["count"])
	})
}

func (s *RegistryHandlerSuite) TestMutationsRequireToken() {
	s.Run("missing token", func() {
		w := s.do(http.MethodPost, "/v1/codes", "", CreateCodeRequest{Key: "CODE1"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("garbage token", func() {
		w := s.do(http.MethodPost, "/v1/codes", "not-a-jwt", CreateCodeRequest{Key: "CODE1"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("token signed with another key", func() {
		other, err := token.NewValidator("wrong-key").Sign("owner")
		s.Require().NoError(err)
		w := s.do(http.MethodPost, "/v1/codes", other, CreateCodeRequest{Key: "CODE1"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("non-owner delete is forbidden", func() {
		s.addCode("CODE1")
		stranger, err := s.validator.Sign("stranger")
		s.Require().NoError(err)
		w := s.do(http.MethodDelete, "/v1/codes/CODE1", stranger, nil)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *RegistryHandlerSuite) TestRecordRoutes() {
	s.addCode("CODE1")

	rec := CreateRecordRequest{
		Key:         "REC1",
		GS1Code:     "CODE1",
		ServiceType: "SVC1",
		Flags:       1,
		Pattern:     `!^.*$!http://example.com/!`,
	}
	w := s.do(http.MethodPost, "/v1/records", s.ownerToken, rec)
	s.Require().Equal(http.StatusCreated, w.Code)

	s.Run("record is readable", func() {
		w := s.do(http.MethodGet, "/v1/records/REC1", "", nil)
		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal("CODE1", resp["gs1_code"])
		s.Equal(true, resp["terminal"])
	})

	s.Run("parent child routes see it", func() {
		w := s.do(http.MethodGet, "/v1/codes/CODE1/records", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(float64(1), s.decode(w)["count"])

		w = s.do(http.MethodGet, "/v1/codes/CODE1/records/0", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("REC1", s.decode(w)["key"])
	})

	s.Run("row past the end is 400", func() {
		w := s.do(http.MethodGet, "/v1/codes/CODE1/records/7", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("non-numeric row is 400", func() {
		w := s.do(http.MethodGet, "/v1/codes/CODE1/records/first", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("record against missing code is 404", func() {
		bad := rec
		bad.Key = "REC2"
		bad.GS1Code = "MISSING"
		w := s.do(http.MethodPost, "/v1/records", s.ownerToken, bad)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("parent with a child cannot be deleted", func() {
		w := s.do(http.MethodDelete, "/v1/codes/CODE1", s.ownerToken, nil)
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("integrity_violation", s.decode(w)["error"])
	})

	s.Run("delete record then parent", func() {
		w := s.do(http.MethodDelete, "/v1/records/REC1", s.ownerToken, nil)
		s.Equal(http.StatusNoContent, w.Code)
		w = s.do(http.MethodDelete, "/v1/codes/CODE1", s.ownerToken, nil)
		s.Equal(http.StatusNoContent, w.Code)
	})
}

func (s *RegistryHandlerSuite) TestServiceTypeRoutes() {
	st := CreateServiceTypeRequest{
		Key:         "SVC1",
		WSDLURI:     "https://example.com/svc.wsdl",
		Docs:        map[string]string{"en": "https://example.com/docs"},
		Obsoletes:   []string{"OLD1", "OLD1", " OLD2 "},
		ObsoletedBy: nil,
	}
	w := s.do(http.MethodPost, "/v1/service-types", s.ownerToken, st)
	s.Require().Equal(http.StatusCreated, w.Code)

	s.Run("lookup returns normalized lists", func() {
		w := s.do(http.MethodGet, "/v1/service-types/SVC1", "", nil)
		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal("SVC1", resp["key"])
		s.ElementsMatch([]any{"OLD1", "OLD2"}, resp["obsoletes"])
	})

	s.Run("documentation lookup by language", func() {
		w := s.do(http.MethodGet, "/v1/service-types/SVC1?lang=en", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("https://example.com/docs", s.decode(w)["location"])

		w = s.do(http.MethodGet, "/v1/service-types/SVC1?lang=fr", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("", s.decode(w)["location"])
	})

	s.Run("documentation for missing type is 404", func() {
		w := s.do(http.MethodGet, "/v1/service-types/MISSING?lang=en", "", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("delete", func() {
		w := s.do(http.MethodDelete, "/v1/service-types/SVC1", s.ownerToken, nil)
		s.Equal(http.StatusNoContent, w.Code)
		w = s.do(http.MethodGet, "/v1/service-types", "", nil)
		s.Equal(float64(0), s.decode(w)["count"])
	})
}

func (s *RegistryHandlerSuite) TestValidationErrors() {
	s.Run("empty key", func() {
		w := s.do(http.MethodPost, "/v1/codes", s.ownerToken, CreateCodeRequest{Key: ""})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("validation_error", s.decode(w)["error"])
	})

	s.Run("unknown body field", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/codes",
			bytes.NewReader([]byte(`{"key":"CODE1","bogus":true}`)))
		req.Header.Set("Authorization", "Bearer "+s.ownerToken)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("key too long", func() {
		long := make([]byte, domain.MaxKeyLen+1)
		for i := range long {
			long[i] = 'a'
		}
		w := s.do(http.MethodPost, "/v1/codes", s.ownerToken, CreateCodeRequest{Key: string(long)})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
