package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		repo   *mockUserRepository
		router *chi.Mux
	)

	do := func(method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var env envelope
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(gomega.Succeed())
		return rec, env
	}

	login := func() string {
		rec, env := do(http.MethodPost, "/auth/login", `{"email":"staff@example.com","password":"correct_password"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var resp AuthResponse
		gomega.Expect(json.Unmarshal(env.Data, &resp)).To(gomega.Succeed())
		return resp.AccessToken
	}

	ginkgo.BeforeEach(func() {
		repo = newMockUserRepository()
		repo.seed("staff@example.com", "correct_password", coreuser.RoleStaff, true)
		service := NewService(repo, NewJWTTokenGenerator(testSecret, "", time.Hour), NewMemoryRevocationStore(), bcrypt.MinCost, testLogger())
		h := NewHandler(service)
		rbac := NewRBACAuthorization(testLogger())

		router = chi.NewRouter()
		router.Post("/auth/login", h.Login)
		router.Post("/auth/register", h.Register)
		router.Group(func(pr chi.Router) {
			pr.Use(h.AuthMiddleware)
			pr.Get("/auth/me", h.Me)
			pr.Post("/auth/logout", h.Logout)
			pr.Get("/auth/verify-token", h.VerifyToken)
			pr.With(rbac.Require(OpReportView)).Get("/reports", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})

	ginkgo.It("rejects malformed bodies with a validation envelope", func() {
		rec, env := do(http.MethodPost, "/auth/login", `{"email":`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(env.Success).To(gomega.BeFalse())
		gomega.Expect(env.Code).To(gomega.Equal("INVALID_REQUEST_BODY"))
	})

	ginkgo.It("answers bad credentials with 401", func() {
		rec, env := do(http.MethodPost, "/auth/login", `{"email":"staff@example.com","password":"wrong"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(env.Code).To(gomega.Equal("INVALID_CREDENTIALS"))
		gomega.Expect(env.Message).To(gomega.Equal("Invalid email or password"))
	})

	ginkgo.It("registers staff accounts", func() {
		rec, env := do(http.MethodPost, "/auth/register",
			`{"email":"new@example.com","password":"password123","employee_id":"E9","first_name":"N","last_name":"U","department":"Ops","role":"admin"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		var resp AuthResponse
		gomega.Expect(json.Unmarshal(env.Data, &resp)).To(gomega.Succeed())
		gomega.Expect(resp.User.Role).To(gomega.Equal(coreuser.RoleStaff))
	})

	ginkgo.It("requires a bearer token on protected routes", func() {
		rec, env := do(http.MethodGet, "/auth/me", "", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(env.Code).To(gomega.Equal("MISSING_TOKEN"))
	})

	ginkgo.It("serves the current user and verifies the token", func() {
		token := login()

		rec, _ := do(http.MethodGet, "/auth/me", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		rec, env := do(http.MethodGet, "/auth/verify-token", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var info TokenInfo
		gomega.Expect(json.Unmarshal(env.Data, &info)).To(gomega.Succeed())
		gomega.Expect(info.Valid).To(gomega.BeTrue())
	})

	ginkgo.It("forbids operations outside the role's policy", func() {
		token := login()

		rec, env := do(http.MethodGet, "/reports", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(env.Code).To(gomega.Equal("INSUFFICIENT_ROLE"))
	})

	ginkgo.It("revokes the token on logout", func() {
		token := login()

		rec, _ := do(http.MethodPost, "/auth/logout", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		rec, env := do(http.MethodGet, "/auth/me", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(env.Code).To(gomega.Equal("TOKEN_REVOKED"))
	})
})
