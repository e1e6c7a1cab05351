package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core/complaint"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

func Test_complaintApi(t *testing.T) {
	app := setup(t)
	ana := app.signUp(t, "ana", 604)
	mod := app.signUpModerator(t, "mod", 201)
	anaToken, modToken := app.getToken(t, ana), app.getToken(t, mod)

	required := "this field is required"
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/complaints", body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/complaints", body: []byte(`{"text": " "}`), token: anaToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"text": required, "category": required}),
		},
		{
			name: "list needs moderator", path: "/v1/complaints", token: anaToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	})

	var first, second complaint.Complaint
	rec := app.do(t, http.MethodPost, "/v1/complaints", anaToken, []byte(`{"text": "Barulho após as 22h", "category": "Barulho"}`), &first)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Barulho após as 22h", first.Text)
	assert.Equal(t, "Barulho", first.Category)
	assert.Equal(t, ana.ID, first.AuthorUID)
	assert.Equal(t, ana.Phone, first.AuthorPhone)
	assert.Equal(t, residency.ContactHref(ana.Phone), first.ContactHref)
	assert.NotEmpty(t, first.ContactHref)
	assert.Equal(t, residency.WhatsAppHref(ana.Phone, complaint.FollowUpMessage), first.WhatsAppHref)
	assert.Equal(t, "https://wa.me/551196040000?text=Ol%C3%A1%2C%20gostaria%20de%20falar%20sobre%20minha%20queixa.", first.WhatsAppHref)

	rec = app.do(t, http.MethodPost, "/v1/complaints", anaToken, []byte(`{"text": "Vazamento na garagem", "category": "Manutenção"}`), &second)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var list []complaint.Complaint
	rec = app.do(t, http.MethodGet, "/v1/complaints", modToken, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.NotContains(t, rec.Body.String(), "whatsapp_href", "the follow-up link is for the author only")
}
