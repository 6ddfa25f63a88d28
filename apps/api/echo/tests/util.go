package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/gymhub/contentdesk/apps/api/echo"
	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/performance"
	"github.com/gymhub/contentdesk/core/submission"
	"github.com/gymhub/contentdesk/services/ratelimit"
	"github.com/gymhub/contentdesk/storage/database/sqlx"
	"github.com/gymhub/contentdesk/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type fixture struct {
	app     Server
	conf    *core.Config
	store   *testutil.MemoryStore
	gymRepo gym.Repository
	fmtRepo format.Repository
	admin   gym.Gym
	gym     gym.Gym
	other   gym.Gym
	photo   format.Format
}

func setup(t *testing.T, failOn ...string) fixture {
	conf := core.NewTestConfig()
	logger := testutil.NopLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	gymRepo := sqlxrepos.NewGymRepository(db)
	fmtRepo := sqlxrepos.NewFormatRepository(db)
	asgRepo := sqlxrepos.NewAssignmentRepository(db)
	subRepo := sqlxrepos.NewSubmissionRepository(db)

	// set up services
	store := testutil.NewMemoryStore(failOn...)
	mailer := new(testutil.MailRecorder)
	gymSvc := gym.NewService(gymRepo, ratelimit.NewMemoryLimiter(conf.Redis.LoginAttempts, conf.Redis.LoginWindow), conf)
	fmtSvc := format.NewService(fmtRepo)
	asgSvc := assignment.NewService(assignment.Deps{
		Repo:       asgRepo,
		Gyms:       gymSvc,
		Formats:    fmtSvc,
		Mailer:     mailer,
		Logger:     logger,
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
	})
	subSvc := submission.NewService(submission.Deps{
		Repo:    subRepo,
		Formats: fmtSvc,
		Gyms:    gymSvc,
		Store:   store,
		Mailer:  mailer,
		Logger:  logger,
		Conf:    conf,
	})

	fx := fixture{conf: conf, store: store, gymRepo: gymRepo, fmtRepo: fmtRepo}
	fx.admin = testutil.CreateGym(t, gymRepo, "HQ", "9999", gym.RoleAdmin, true)
	fx.gym = testutil.CreateGym(t, gymRepo, "Downtown", "1111", gym.RoleMember, true, "downtown@gyms.test")
	fx.other = testutil.CreateGym(t, gymRepo, "Riverside", "2222", gym.RoleMember, true)
	fx.photo = testutil.CreateFormat(t, fmtRepo, "facility_photo", format.TypePhoto, 12)

	// set up server
	fx.app = NewServer(
		&Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			GymSvc:         gymSvc,
			FormatSvc:      fmtSvc,
			AssignmentSvc:  asgSvc,
			SubmissionSvc:  subSvc,
			PerformanceSvc: performance.NewService(gymSvc, asgSvc),
		},
		nil, /* signalShutdown */
	)
	return fx
}

func (fx fixture) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	fx.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request carrying files under field, keyed by file name.
func newUploadRequest(t *testing.T, path, token, field string, files map[string][]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
		if _, err = part.Write(content); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, g gym.Gym) string {
	token, err := GenerateToken(GetGymClaims(g, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshalBody() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
