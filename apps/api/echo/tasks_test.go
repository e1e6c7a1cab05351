package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

func mockBoardNow(t *testing.T, now time.Time) {
	orig := board.NowFunc
	board.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { board.NowFunc = orig })
}

func (app *testApp) createTask(t *testing.T, token, body string) board.Task {
	t.Helper()
	var task board.Task
	rec := app.do(t, http.MethodPost, "/v1/tasks", token, []byte(body), &task)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return task
}

func Test_taskApi_create(t *testing.T) {
	app := setup(t)
	mod := app.signUpModerator(t, "mod", 201)
	ana := app.signUp(t, "ana", 604)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/tasks", body: []byte(`{"title": "Pintura"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "moderator required", method: http.MethodPost, path: "/v1/tasks", body: []byte(`{"title": "Pintura"}`), token: app.getToken(t, ana),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "blank title", method: http.MethodPost, path: "/v1/tasks", body: []byte(`{"title": " "}`), token: app.getToken(t, mod),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "bad due date", method: http.MethodPost, path: "/v1/tasks", body: []byte(`{"title": "Pintura", "due_date": "10/03/2024"}`), token: app.getToken(t, mod),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	task := app.createTask(t, app.getToken(t, mod), `{"title": " Pintura da fachada ", "category": "Obras", "due_date": "2024-04-01"}`)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Pintura da fachada", task.Title)
	assert.Equal(t, "obras", task.Category)
	assert.Equal(t, board.StatusTodo, task.Status)
	assert.Equal(t, mod.ID, task.CreatedBy)
	assert.Equal(t, "mod", task.CreatedByName)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local).Unix(), task.DueDate.Unix())

	var got board.Task
	rec := app.do(t, http.MethodGet, "/v1/tasks/"+task.ID, app.getToken(t, ana), nil, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, task.ID, got.ID)

	runHTTPTests(t, app, []httpTest{
		{
			name: "task not found", path: "/v1/tasks/lol", token: app.getToken(t, ana),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: board.ErrTaskNotFound.Error()}),
		},
	})
}

func Test_taskApi_lists(t *testing.T) {
	app := setup(t)
	mockBoardNow(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local))
	mod := app.signUpModerator(t, "mod", 201)
	token := app.getToken(t, app.signUp(t, "ana", 604))
	modToken := app.getToken(t, mod)

	late := app.createTask(t, modToken, `{"title": "Bomba d'água", "due_date": "2024-03-01"}`)
	onTime := app.createTask(t, modToken, `{"title": "Pintura", "due_date": "2024-04-01"}`)
	doing := app.createTask(t, modToken, `{"title": "Portão"}`)
	done := app.createTask(t, modToken, `{"title": "Lâmpadas"}`)

	var task board.Task
	rec := app.do(t, http.MethodPost, "/v1/tasks/"+doing.ID+"/doing", modToken, nil, &task)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, board.StatusDoing, task.Status)
	assert.NotNil(t, task.UpdatedAt)

	rec = app.do(t, http.MethodPost, "/v1/tasks/"+done.ID+"/done", modToken, nil, &task)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, board.StatusDone, task.Status)

	ids := func(tasks []board.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{name: "all", want: []string{doing.ID, onTime.ID, late.ID}},
		{name: "explicit all", filter: board.FilterAll, want: []string{doing.ID, onTime.ID, late.ID}},
		{name: "late", filter: board.FilterLate, want: []string{late.ID}},
		{name: "on time", filter: board.FilterOnTime, want: []string{doing.ID, onTime.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []board.Task
			rec := app.do(t, http.MethodGet, "/v1/tasks?filter="+tt.filter, token, nil, &tasks)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, ids(tasks))
		})
	}

	var tasks []board.Task
	rec = app.do(t, http.MethodGet, "/v1/tasks", token, nil, &tasks)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tasks, 3)
	assert.Equal(t, board.StatusLate, tasks[2].Status, "past due tasks show as late")

	rec = app.do(t, http.MethodGet, "/v1/tasks/done", token, nil, &tasks)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{done.ID}, ids(tasks))

	runHTTPTests(t, app, []httpTest{
		{
			name: "invalid filter", path: "/v1/tasks?filter=lol", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"filter": board.ErrInvalidFilter.Error()}),
		},
		{
			name: "moderator required", method: http.MethodPost, path: "/v1/tasks/" + late.ID + "/done", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown task", method: http.MethodPost, path: "/v1/tasks/lol/doing", token: modToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: board.ErrTaskNotFound.Error()}),
		},
	})
}

func Test_taskApi_comments(t *testing.T) {
	app := setup(t)
	mod := app.signUpModerator(t, "mod", 201)
	ana := app.signUp(t, "ana", 604)
	token := app.getToken(t, ana)
	modToken := app.getToken(t, mod)

	task := app.createTask(t, modToken, `{"title": "Portão"}`)
	path := "/v1/tasks/" + task.ID + "/comments"

	var c board.Comment
	rec := app.do(t, http.MethodPost, path, token, []byte(`{"text": "Está rangendo"}`), &c)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Está rangendo", c.Text)
	assert.Equal(t, ana.ID, c.AuthorUID)
	assert.Equal(t, "ana", c.AuthorName)
	assert.Equal(t, 604, c.AuthorApt)

	rec = app.do(t, http.MethodPost, path, modToken, []byte(`{"text": "Técnico vem amanhã"}`), &c)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var comments []board.Comment
	rec = app.do(t, http.MethodGet, path, token, nil, &comments)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, comments, 2)
	assert.Equal(t, "Está rangendo", comments[0].Text, "oldest first")
	assert.Equal(t, "Técnico vem amanhã", comments[1].Text)

	runHTTPTests(t, app, []httpTest{
		{
			name: "blank comment", method: http.MethodPost, path: path, body: []byte(`{"text": ""}`), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"text": "this field is required"}),
		},
		{
			name: "unknown task", method: http.MethodPost, path: "/v1/tasks/lol/comments", body: []byte(`{"text": "oi"}`), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: board.ErrTaskNotFound.Error()}),
		},
		{
			name: "resident cannot delete", method: http.MethodDelete, path: "/v1/tasks/" + task.ID, token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/tasks/" + task.ID, token: modToken, wantCode: http.StatusNoContent},
		{
			name: "deleted", path: "/v1/tasks/" + task.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: board.ErrTaskNotFound.Error()}),
		},
	})

	// comments go along with their task
	docs, err := app.store.Query(context.Background(), board.CommentsCollection(task.ID), docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
