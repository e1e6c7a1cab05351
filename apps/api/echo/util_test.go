package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/iannini25/auxiliosindico-web/apps/api/echo"
	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/complaint"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	"github.com/iannini25/auxiliosindico-web/core/suggestion"
	"github.com/iannini25/auxiliosindico-web/services/email"
	"github.com/iannini25/auxiliosindico-web/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf      *core.Config
	store     docstore.Store
	accounts  identity.AccountRepository
	residents *residency.Service
	mailSvc   *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	testutil.UseDummyClock(t, testutil.Clock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.Second))

	conf := core.NewTestConfig()
	logger := new(testutil.Logger)

	// set up DB & repos
	store, accounts := testutil.OpenDummyDB(t)

	// set up services
	validate, translator := testutil.NewValidate()
	residency.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	residents := residency.NewService(store, mailSvc, logger, validate, conf)

	// set up server
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		NewAuth:        identity.NewFactory(accounts),
		ResidencySvc:   residents,
		BoardSvc:       board.NewService(store, logger, validate),
		SuggestionSvc:  suggestion.NewService(store, logger, validate),
		ComplaintSvc:   complaint.NewService(store, validate),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = server.Close() })

	return &testApp{
		Server:    server,
		conf:      conf,
		store:     store,
		accounts:  accounts,
		residents: residents,
		mailSvc:   mailSvc,
	}
}

// signUp registers a resident named name in apt, with the email name@test.br.
func (app *testApp) signUp(t *testing.T, name string, apt int) residency.Profile {
	t.Helper()
	prof, err := app.residents.SignUp(context.Background(), identity.NewClient(app.accounts), residency.NewResident{
		Name:  name,
		Phone: "11 9" + strconv.Itoa(apt) + "0000",
		Apt:   residency.AptNumber(strconv.Itoa(apt)),
		Email: name + "@test.br",
	})
	require.NoError(t, err, "signing up %s", name)
	return prof
}

func (app *testApp) signUpModerator(t *testing.T, name string, apt int) residency.Profile {
	t.Helper()
	app.signUp(t, name, apt)
	prof, err := app.residents.SetRole(context.Background(), name+"@test.br", residency.RoleModerator)
	require.NoError(t, err)
	return prof
}

func (app *testApp) token(t *testing.T, accountID, email string) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetSessionClaims(app.conf, identity.Session{AccountID: accountID, Email: email}))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (app *testApp) getToken(t *testing.T, prof residency.Profile) string {
	t.Helper()
	return app.token(t, prof.ID, prof.Email)
}

// do serves a request and decodes the JSON response into out, when given.
func (app *testApp) do(t *testing.T, method, path, token string, body []byte, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, body)
	app.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "decoding %s", rec.Body.String())
	}
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
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
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
