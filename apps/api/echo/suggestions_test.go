package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/iannini25/auxiliosindico-web/apps/api/echo"
	"github.com/iannini25/auxiliosindico-web/core/suggestion"
)

func (app *testApp) vote(t *testing.T, token, id, value string) string {
	t.Helper()
	var resp VoteResponse
	rec := app.do(t, http.MethodPut, "/v1/suggestions/"+id+"/vote", token, marchallObj(t, VoteRequest{Value: value}), &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return resp.Vote
}

func (app *testApp) listSuggestions(t *testing.T, token, path string) []suggestion.Suggestion {
	t.Helper()
	var list []suggestion.Suggestion
	rec := app.do(t, http.MethodGet, path, token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return list
}

func Test_suggestionApi(t *testing.T) {
	app := setup(t)
	ana := app.signUp(t, "ana", 604)
	bia := app.signUp(t, "bia", 302)
	mod := app.signUpModerator(t, "mod", 201)
	anaToken, biaToken, modToken := app.getToken(t, ana), app.getToken(t, bia), app.getToken(t, mod)

	var s suggestion.Suggestion
	rec := app.do(t, http.MethodPost, "/v1/suggestions", anaToken, []byte(`{"text": "Bicicletário\nNa garagem, perto do portão"}`), &s)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Bicicletário", s.Title)
	assert.Equal(t, "Na garagem, perto do portão", s.Description)
	assert.Equal(t, suggestion.StatusPending, s.Status)
	assert.Equal(t, ana.ID, s.AuthorUID)
	assert.Equal(t, 604, s.AuthorApt)

	var other suggestion.Suggestion
	rec = app.do(t, http.MethodPost, "/v1/suggestions", biaToken, []byte(`{"text": "Horta comunitária"}`), &other)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("votes toggle", func(t *testing.T) {
		assert.Equal(t, suggestion.VoteYes, app.vote(t, anaToken, s.ID, suggestion.VoteYes))
		assert.Equal(t, suggestion.VoteYes, app.vote(t, biaToken, s.ID, suggestion.VoteYes))
		assert.Equal(t, suggestion.VoteNo, app.vote(t, biaToken, s.ID, suggestion.VoteNo), "opposite value replaces the vote")
		assert.Equal(t, suggestion.VoteYes, app.vote(t, modToken, other.ID, suggestion.VoteYes))
		assert.Equal(t, "", app.vote(t, modToken, other.ID, suggestion.VoteYes), "same value withdraws the vote")
	})

	t.Run("tallies", func(t *testing.T) {
		list := app.listSuggestions(t, biaToken, "/v1/suggestions")
		require.Len(t, list, 2)
		assert.Equal(t, other.ID, list[0].ID, "newest first")
		assert.Equal(t, 0, list[0].Yes+list[0].No)
		assert.Equal(t, s.ID, list[1].ID)
		assert.Equal(t, 1, list[1].Yes)
		assert.Equal(t, 1, list[1].No)
		assert.Equal(t, suggestion.VoteNo, list[1].MyVote)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name: "blank text", method: http.MethodPost, path: "/v1/suggestions", body: []byte(`{"text": " "}`), token: anaToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"text": "this field is required"}),
		},
		{
			name: "invalid vote", method: http.MethodPut, path: "/v1/suggestions/" + s.ID + "/vote", body: []byte(`{"value": "maybe"}`), token: anaToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"value": suggestion.ErrInvalidVote.Error()}),
		},
		{
			name: "unknown suggestion", method: http.MethodPut, path: "/v1/suggestions/lol/vote", body: []byte(`{"value": "yes"}`), token: anaToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: suggestion.ErrSuggestionNotFound.Error()}),
		},
		{
			name: "pending needs moderator", path: "/v1/suggestions/pending", token: anaToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "decision needs moderator", method: http.MethodPost, path: "/v1/suggestions/" + s.ID + "/decision", body: []byte(`{"decision": "aprovada"}`), token: anaToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid decision", method: http.MethodPost, path: "/v1/suggestions/" + s.ID + "/decision", body: []byte(`{"decision": "talvez"}`), token: modToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"decision": suggestion.ErrInvalidDecision.Error()}),
		},
	})

	t.Run("moderation", func(t *testing.T) {
		pending := app.listSuggestions(t, modToken, "/v1/suggestions/pending")
		require.Len(t, pending, 2)

		var decided suggestion.Suggestion
		rec := app.do(t, http.MethodPost, "/v1/suggestions/"+s.ID+"/decision", modToken, marchallObj(t, DecisionRequest{Decision: suggestion.StatusApproved}), &decided)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, suggestion.StatusApproved, decided.Status)
		assert.NotNil(t, decided.DecidedAt)

		rec = app.do(t, http.MethodPost, "/v1/suggestions/"+other.ID+"/decision", modToken, marchallObj(t, DecisionRequest{Decision: suggestion.StatusRejected}), &decided)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		pending = app.listSuggestions(t, modToken, "/v1/suggestions/pending")
		assert.Empty(t, pending)

		// rejected suggestions leave the board and take no more votes
		visible := app.listSuggestions(t, anaToken, "/v1/suggestions")
		require.Len(t, visible, 1)
		assert.Equal(t, s.ID, visible[0].ID)
		assert.Equal(t, suggestion.VoteYes, visible[0].MyVote)

		var resp httpErr
		rec = app.do(t, http.MethodPut, "/v1/suggestions/"+other.ID+"/vote", anaToken, []byte(`{"value": "yes"}`), &resp)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, suggestion.ErrClosed.Error(), resp.Error)
	})
}
