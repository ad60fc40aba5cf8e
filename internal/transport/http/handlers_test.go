package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks RegistrationService,Exporter,AdminService

import (
	"bytes"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	adminservice "escuela/internal/admin/service"
	"escuela/internal/registration/models"
	"escuela/internal/transport/http/mocks"
	dErrors "escuela/pkg/domain-errors"
	authmw "escuela/pkg/platform/middleware/auth"
	"escuela/pkg/testutil"
)

const validToken = "valid-token"

var acceptValidToken = authmw.ValidatorFunc(func(token string) (*authmw.JWTClaims, error) {
	if token != validToken {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid token")
	}
	return &authmw.JWTClaims{Username: "coordinacion", Role: "admin"}, nil
})

type HandlerSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	registrations *mocks.MockRegistrationService
	admin         *mocks.MockAdminService
	exporter      *mocks.MockExporter
	logs          *bytes.Buffer
	router        http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registrations = mocks.NewMockRegistrationService(s.ctrl)
	s.admin = mocks.NewMockAdminService(s.ctrl)
	s.exporter = mocks.NewMockExporter(s.ctrl)

	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(s.logs, nil))
	h := NewHandler(s.registrations, s.admin, s.exporter, logger)
	s.router = NewRouter(h, RouterConfig{
		Logger:                  logger,
		Validator:               acceptValidToken,
		PublicDepartmentListing: true,
	})
}

func (s *HandlerSuite) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func sampleRegistration(id string) *models.Registration {
	return &models.Registration{
		ID:           id,
		FullName:     "Marta Gomez",
		IDNumber:     "52000111",
		Department:   "Cundinamarca",
		Profession:   "Docente",
		RegisteredAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		Status:       models.StatusActive,
	}
}

func (s *HandlerSuite) TestRegister() {
	body := map[string]string{
		"nombre":               "Marta Gomez",
		"cedula":               "52000111",
		"telefono":             "3001112233",
		"ciudad":               "Soacha",
		"departamento":         "Cundinamarca",
		"profesion":            "Docente",
		"nombreEmprendimiento": "Aula Viva",
		"redesSociales":        "@aulaviva",
		"retosEmprendimiento":  "Financiacion",
	}

	s.T().Run("created - 201 with id", func(t *testing.T) {
		s.registrations.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req *models.SubmitRequest) (*models.Registration, error) {
				assert.Equal(t, "52000111", req.IDNumber)
				assert.Equal(t, "Aula Viva", req.VentureName)
				return sampleRegistration("reg-1"), nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/inscripcion", body))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RegisterResponse](t, rr)
		assert.True(t, resp.Success)
		assert.Equal(t, "Inscripcion realizada exitosamente", resp.Message)
		assert.Equal(t, "reg-1", resp.ID)
	})

	s.T().Run("duplicate - 400 with message", func(t *testing.T) {
		s.registrations.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicate, "Esta cedula ya se encuentra registrada"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/inscripcion", body))

		testutil.AssertFailure(t, rr, http.StatusBadRequest, "Esta cedula ya se encuentra registrada")
	})

	s.T().Run("invalid json - 400 without calling service", func(t *testing.T) {
		s.registrations.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(t, http.MethodPost, "/api/inscripcion", "{bad-json"))

		testutil.AssertFailure(t, rr, http.StatusBadRequest, "Solicitud invalida")
	})

	s.T().Run("store failure - 500 with generic message", func(t *testing.T) {
		s.registrations.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeStore, "failed to store registration"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/inscripcion", body))

		testutil.AssertFailure(t, rr, http.StatusInternalServerError, "Error interno del servidor")
		assert.NotContains(t, rr.Body.String(), "connection reset")
	})
}

func (s *HandlerSuite) TestPublicList() {
	s.registrations.EXPECT().ListByDepartment(gomock.Any(), "Valle del Cauca").
		Return([]*models.Registration{sampleRegistration("a"), sampleRegistration("b")}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/inscripciones/Valle%20del%20Cauca"))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
	s.True(resp.Success)
	s.Equal(2, resp.Total)
	s.Len(resp.Data, 2)
	s.Equal("a", resp.Data[0].ID)
}

func (s *HandlerSuite) TestPublicListDisabled() {
	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(s.logs, nil))
	router := NewRouter(NewHandler(s.registrations, s.admin, s.exporter, logger), RouterConfig{
		Logger:    logger,
		Validator: acceptValidToken,
	})
	s.registrations.EXPECT().ListByDepartment(gomock.Any(), gomock.Any()).Times(0)

	rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/api/inscripciones/Meta"))

	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *HandlerSuite) TestLogin() {
	s.T().Run("success - token returned", func(t *testing.T) {
		s.admin.EXPECT().Login(gomock.Any(), "coordinacion", "clave", gomock.Any()).
			Return(&adminservice.LoginResult{Token: "jwt", Username: "coordinacion", Role: "admin"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login",
			LoginRequest{Username: "coordinacion", Password: "clave"}))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[LoginResponse](t, rr)
		assert.True(t, resp.Success)
		assert.Equal(t, "Login exitoso", resp.Message)
		assert.Equal(t, "jwt", resp.Token)
	})

	s.T().Run("client ip is the peer when no proxy is trusted", func(t *testing.T) {
		s.admin.EXPECT().Login(gomock.Any(), "coordinacion", "clave", "192.0.2.1").
			Return(&adminservice.LoginResult{Token: "jwt"}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "coordinacion", Password: "clave"})
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(t, rr)
	})

	s.T().Run("wrong credentials - 401 and no token", func(t *testing.T) {
		s.admin.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "Credenciales incorrectas"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login",
			LoginRequest{Username: "coordinacion", Password: "mal"}))

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		assert.NotContains(t, rr.Body.String(), "token")
	})

	s.T().Run("locked out - 429", func(t *testing.T) {
		s.admin.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTooManyAttempts, "Demasiados intentos, intente mas tarde"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login",
			LoginRequest{Username: "coordinacion", Password: "mal"}))

		testutil.AssertFailure(t, rr, http.StatusTooManyRequests, "Demasiados intentos, intente mas tarde")
	})
}

func (s *HandlerSuite) TestProtectedRoutesRequireCredential() {
	paths := []string{
		"/api/admin/verify",
		"/api/admin/departamentos",
		"/api/admin/inscripciones/todos",
		"/api/admin/descargar/todos",
		"/api/admin/estadisticas",
	}
	for _, path := range paths {
		s.T().Run(path, func(t *testing.T) {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, path))
			testutil.AssertFailure(t, rr, http.StatusUnauthorized, "Token requerido")

			req := testutil.NewRequest(t, http.MethodGet, path)
			req.Header.Set("Authorization", "Bearer forged")
			rr = testutil.DoRequest(s.router, req)
			testutil.AssertFailure(t, rr, http.StatusForbidden, "Token invalido")
		})
	}
}

func (s *HandlerSuite) TestVerify() {
	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/admin/verify")))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[VerifyResponse](s.T(), rr)
	s.True(resp.Success)
	s.Equal(UserInfo{Username: "coordinacion", Role: "admin"}, resp.User)
}

func (s *HandlerSuite) TestDepartments() {
	s.registrations.EXPECT().Departments(gomock.Any()).Return(&models.DepartmentSummary{
		Departments: []models.GroupCount{{Key: "Huila", Total: 2}, {Key: "Meta", Total: 1}},
		Total:       3,
	}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/admin/departamentos")))

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"success":true,"data":[{"_id":"Huila","total":2},{"_id":"Meta","total":1}],"totalGeneral":3}`, rr.Body.String())
}

func (s *HandlerSuite) TestAdminList() {
	s.registrations.EXPECT().List(gomock.Any(), models.AllDepartments).Return([]*models.Registration{}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/admin/inscripciones/todos")))

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"success":true,"data":[],"total":0}`, rr.Body.String())
}

func (s *HandlerSuite) TestStatistics() {
	s.registrations.EXPECT().Statistics(gomock.Any()).Return(&models.Statistics{
		TotalRegistered: 4,
		ByProfession:    []models.GroupCount{{Key: "Chef", Total: 4}},
		Latest:          []*models.Registration{},
	}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/admin/estadisticas")))

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"success":true,"data":{"totalInscritos":4,"porProfesion":[{"_id":"Chef","total":4}],"ultimosRegistros":[]}}`, rr.Body.String())
}

func (s *HandlerSuite) TestExport() {
	s.T().Run("attachment with derived filename", func(t *testing.T) {
		regs := []*models.Registration{sampleRegistration("a")}
		s.registrations.EXPECT().List(gomock.Any(), "Valle del Cauca").Return(regs, nil)
		s.exporter.EXPECT().Write(gomock.Any(), regs).Return([]byte("xlsx-bytes"), nil)

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(t, http.MethodGet, "/api/admin/descargar/Valle%20del%20Cauca")))

		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=inscripciones_Valle_del_Cauca.xlsx`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, "xlsx-bytes", rr.Body.String())
	})

	s.T().Run("department segment is decoded exactly once", func(t *testing.T) {
		tests := []struct {
			path       string
			department string
			filename   string
		}{
			{"/api/admin/descargar/A%2520B", "A%20B", "inscripciones_A%20B.xlsx"},
			{"/api/admin/descargar/A%2FB", "A/B", "inscripciones_A/B.xlsx"},
			{"/api/admin/descargar/C%C3%B3rdoba", "Córdoba", "inscripciones_Córdoba.xlsx"},
			{"/api/admin/descargar/Nari%22o", `Nari"o`, `inscripciones_Nari"o.xlsx`},
		}
		for _, tt := range tests {
			s.registrations.EXPECT().List(gomock.Any(), tt.department).Return([]*models.Registration{}, nil)
			s.exporter.EXPECT().Write(gomock.Any(), gomock.Any()).Return([]byte("xlsx-bytes"), nil)

			rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(t, http.MethodGet, tt.path)))

			testutil.AssertStatusOK(t, rr)
			disposition, params, err := mime.ParseMediaType(rr.Header().Get("Content-Disposition"))
			require.NoError(t, err, tt.path)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, tt.filename, params["filename"], tt.path)
		}
	})

	s.T().Run("export failure - 500 json, no partial file", func(t *testing.T) {
		s.registrations.EXPECT().List(gomock.Any(), models.AllDepartments).Return([]*models.Registration{}, nil)
		s.exporter.EXPECT().Write(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("zip"), dErrors.CodeExport, "failed to serialize workbook"))

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(t, http.MethodGet, "/api/admin/descargar/todos")))

		testutil.AssertFailure(t, rr, http.StatusInternalServerError, "Error generando archivo Excel")
		assert.Empty(t, rr.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json"))
	})

	s.T().Run("list failure skips the exporter", func(t *testing.T) {
		s.registrations.EXPECT().List(gomock.Any(), "Meta").
			Return(nil, dErrors.Wrap(errors.New("down"), dErrors.CodeStore, "failed"))
		s.exporter.EXPECT().Write(gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(t, http.MethodGet, "/api/admin/descargar/Meta")))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func (s *HandlerSuite) TestCORSPreflight() {
	req := testutil.NewRequest(s.T(), http.MethodOptions, "/api/inscripcion")
	req.Header.Set("Origin", "https://formulario.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func (s *HandlerSuite) TestPanicLogCarriesRequestID() {
	s.registrations.EXPECT().Departments(gomock.Any()).DoAndReturn(
		func(_ any) (*models.DepartmentSummary, error) {
			panic("boom")
		})

	req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/admin/departamentos"))
	req.Header.Set("X-Request-ID", "req-panic-1")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertFailure(s.T(), rr, http.StatusInternalServerError, "Error interno del servidor")
	s.Equal("req-panic-1", rr.Header().Get("X-Request-ID"))
	s.Contains(s.logs.String(), "panic recovered")
	s.Contains(s.logs.String(), "request_id=req-panic-1")
}
