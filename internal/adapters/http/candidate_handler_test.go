package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabay/core/internal/adapters/codec"
	"github.com/gabay/core/internal/adapters/filestore"
	"github.com/gabay/core/internal/adapters/repository"
	"github.com/gabay/core/internal/application/services"
	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

type structValidator struct {
	v *validator.Validate
}

func (sv structValidator) Validate(i interface{}) error {
	return sv.v.Struct(i)
}

type fixture struct {
	echo    *echo.Echo
	service *services.CandidateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewCandidateStore(filestore.New(afero.NewMemMapFs()), "candidates.txt", codec.NewBlockCodec(), logger.NewNop())
	require.NoError(t, store.Load(context.Background()))
	svc := services.NewCandidateService(store, logger.NewNop())
	h := NewCandidateHandler(svc, logger.NewNop())

	e := echo.New()
	e.Validator = structValidator{v: validator.New()}
	g := e.Group("/candidates")
	g.GET("", h.ListCandidates)
	g.GET("/search", h.SearchCandidates)
	g.GET("/compare", h.CompareCandidates)
	g.GET("/export", h.ExportCandidates)
	g.GET("/:id", h.GetCandidate)
	g.POST("", h.CreateCandidate)
	g.POST("/import", h.ImportCandidates)
	g.POST("/reload", h.ReloadCandidates)
	g.PUT("/:id", h.UpdateCandidate)
	g.DELETE("/:id", h.DeleteCandidate)
	e.GET("/social-issues", NewCatalogHandler().ListSocialIssues)

	return &fixture{echo: e, service: svc}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seed(t *testing.T, name, region string, stances map[string]string) *entities.Candidate {
	t.Helper()
	c, err := f.service.CreateCandidate(context.Background(), ports.CandidateRequest{
		Name:              name,
		Age:               48,
		Position:          "Senator",
		PartyAffiliation:  "Independent",
		Region:            region,
		YearsOfExperience: 9,
		SocialStance:      stances,
	})
	require.NoError(t, err)
	return c
}

const validBody = `{
	"name": "Ana Reyes",
	"age": 45,
	"position": "Senator",
	"party_affiliation": "Independent",
	"region": "NCR",
	"years_of_experience": 10,
	"campaign_slogan": "Para sa bayan",
	"platforms": ["Health"],
	"social_stance": {"Divorce": "Agree"}
}`

func TestCreateCandidate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/candidates", validBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got entities.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "Ana Reyes", got.Name)
	assert.Equal(t, entities.StanceAgree, got.SocialStance["Divorce"])
	assert.Equal(t, []string{}, got.NotableLaws)
}

func TestCreateCandidate_ValidationIs422(t *testing.T) {
	f := newFixture(t)

	body := strings.Replace(validBody, `"age": 45`, `"age": 15`, 1)
	rec := f.do(http.MethodPost, "/candidates", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "age must be between 18 and 100")

	body = strings.Replace(validBody, `{"Divorce": "Agree"}`, `{"Divorce": "Agree", "divorce": "Disagree"}`, 1)
	rec = f.do(http.MethodPost, "/candidates", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "given more than once")

	rec = f.do(http.MethodPost, "/candidates", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCandidate(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, "Ana Reyes", "NCR", nil)

	rec := f.do(http.MethodGet, "/candidates/"+c.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ana Reyes"`)

	rec = f.do(http.MethodGet, "/candidates/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/candidates/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Ana Reyes", "NCR", nil)
	f.seed(t, "Ben Santos", "Region VII", nil)

	rec := f.do(http.MethodGet, "/candidates?region=ncr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse[*entities.Candidate]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Ana Reyes", list.Data[0].Name)

	rec = f.do(http.MethodGet, "/candidates/search?q=santos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rec = f.do(http.MethodGet, "/candidates/search?q=s", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, "Ana Reyes", "NCR", nil)

	body := strings.Replace(validBody, `"Senator"`, `"Governor"`, 1)
	rec := f.do(http.MethodPut, "/candidates/"+c.ID.String(), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"position":"Governor"`)
	assert.Contains(t, rec.Body.String(), c.ID.String())

	rec = f.do(http.MethodDelete, "/candidates/"+c.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodDelete, "/candidates/"+c.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/candidates/"+c.ID.String(), validBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompare(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, "Ana Reyes", "NCR", map[string]string{"Divorce": "Agree"})
	b := f.seed(t, "Ben Santos", "NCR", map[string]string{"Divorce": "Agree", "Abortion": "Disagree"})

	rec := f.do(http.MethodGet, "/candidates/compare?id="+a.ID.String()+"&id="+b.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cmp ports.Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Len(t, cmp.Candidates, 2)
	assert.Equal(t, []entities.SocialIssue{"Divorce"}, cmp.Consensus)

	rec = f.do(http.MethodGet, "/candidates/compare?id="+a.ID.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/candidates/compare?id="+a.ID.String()+"&id=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportExportAndReload(t *testing.T) {
	f := newFixture(t)

	data := "Ana Reyes|45|Senator|Independent|NCR|10|Slogan|Health|||||Divorce - Agree\n" +
		"Short|45\n"
	req := httptest.NewRequest(http.MethodPost, "/candidates/import", strings.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ports.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Imported)
	assert.Len(t, report.Skipped, 1)

	rec = f.do(http.MethodGet, "/candidates/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Ana Reyes|45|Senator|"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "candidates.txt")

	rec = f.do(http.MethodPost, "/candidates/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loaded":1`)
}

func TestListSocialIssues(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/social-issues", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SocialIssuesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entities.SocialIssues, resp.Issues)
	assert.Equal(t, entities.StanceNoData, resp.Fallback)
}

func TestImportCandidates_OversizedBodyIs413(t *testing.T) {
	f := newFixture(t)

	line := "Ana Reyes|45|Senator|Independent|NCR|10|Slogan|Health|||||Divorce - Agree\n"
	body := strings.Repeat(line, maxImportBytes/len(line)+1)
	require.Greater(t, len(body), maxImportBytes)

	req := httptest.NewRequest(http.MethodPost, "/candidates/import", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	all, err := f.service.ListCandidates(context.Background(), ports.CandidateFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
