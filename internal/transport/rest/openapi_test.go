package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/report"
	"github.com/frahmantamala/cash-advance/internal/user"
)

const openAPIFile = "../../../api/openapi.yml"

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile(openAPIFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(loader.Context)).To(Succeed())
	})

	It("documents every mounted api route", func() {
		lg := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		router := chi.NewRouter()
		RegisterAllRoutes(router, Handlers{
			Auth:    &auth.Handler{},
			User:    &user.Handler{},
			Advance: &advance.Handler{},
			Report:  &report.Handler{},
		}, Options{OpenAPIPath: openAPIFile}, lg)

		var mounted int
		err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, "/api/v1/") {
				return nil
			}
			path := strings.TrimSuffix(strings.TrimPrefix(route, "/api/v1"), "/")
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil(), "undocumented path %s", path)
			Expect(item.GetOperation(method)).NotTo(BeNil(), "undocumented operation %s %s", method, path)
			mounted++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(mounted).To(Equal(countOperations(doc)))
	})
})

func countOperations(doc *openapi3.T) int {
	n := 0
	for _, item := range doc.Paths.Map() {
		n += len(item.Operations())
	}
	return n
}
