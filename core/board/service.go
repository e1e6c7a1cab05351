// Package board is the condominium task board: tasks managed by moderators, with status tracking
// and resident comments.
package board

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

var (
	// errors
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidFilter = errors.Errorf("invalid filter: use %s, %s or %s", FilterAll, FilterLate, FilterOnTime)

	NowFunc = time.Now // mockable
)

type Service struct {
	store    docstore.Store
	logger   core.Logger
	validate *validator.Validate
}

func NewService(store docstore.Store, logger core.Logger, validate *validator.Validate) *Service {
	return &Service{store: store, logger: logger, validate: validate}
}

func (svc *Service) Create(ctx context.Context, actor residency.Profile, nt NewTask) (Task, error) {
	if err := residency.RequireModerator(actor); err != nil {
		return Task{}, err
	}
	if err := nt.Validate(svc.validate); err != nil {
		return Task{}, err
	}
	due, err := nt.dueDate()
	if err != nil {
		return Task{}, errors.Wrap(err, "parsing due date")
	}

	data := docstore.Data{
		"title":         nt.Title,
		"description":   nt.Description,
		"category":      core.FirstNonBlank(nt.Category, defaultCategory),
		"status":        StatusTodo,
		"createdAt":     docstore.ServerTimestamp,
		"createdBy":     actor.ID,
		"createdByName": core.FirstNonBlank(actor.Name, defaultAuthorName),
	}
	if due != nil {
		data["dueDate"] = due.UTC()
	}
	id, err := svc.store.Add(ctx, TasksCollection, data)
	if err != nil {
		return Task{}, errors.Wrap(err, "adding task")
	}
	return svc.Get(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id string) (Task, error) {
	doc, err := svc.store.Get(ctx, TasksCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, errors.Wrap(err, "getting task")
	}
	return taskFromDoc(doc), nil
}

// ListOpen returns the tasks not done yet, newest first, with their status as shown on the board.
func (svc *Service) ListOpen(ctx context.Context, filter string) ([]Task, error) {
	if !IsValidFilter(filter) {
		return nil, core.NewFieldError("filter", ErrInvalidFilter)
	}
	docs, err := svc.store.Query(ctx, TasksCollection, docstore.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, errors.Wrap(err, "listing tasks")
	}

	now := NowFunc()
	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		t := taskFromDoc(doc)
		status, open := NormalizeStatus(t.Status, t.DueDate, now)
		if !open || !matchFilter(filter, status) {
			continue
		}
		t.Status = status
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ListDone returns the finished tasks, most recently changed first. Boards that only know the
// legacy label are read through it.
func (svc *Service) ListDone(ctx context.Context) ([]Task, error) {
	tasks, err := svc.listByStatus(ctx, StatusDone)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		if tasks, err = svc.listByStatus(ctx, legacyDone); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].lastChange().After(tasks[j].lastChange())
	})
	for i := range tasks {
		tasks[i].Status = StatusDone
	}
	return tasks, nil
}

func (svc *Service) listByStatus(ctx context.Context, status string) ([]Task, error) {
	docs, err := svc.store.Query(ctx, TasksCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("status", docstore.OpEqual, status)},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s tasks", status)
	}
	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, taskFromDoc(doc))
	}
	return tasks, nil
}

func (svc *Service) MarkDoing(ctx context.Context, actor residency.Profile, id string) (Task, error) {
	return svc.setStatus(ctx, actor, id, StatusDoing)
}

func (svc *Service) MarkDone(ctx context.Context, actor residency.Profile, id string) (Task, error) {
	return svc.setStatus(ctx, actor, id, StatusDone)
}

func (svc *Service) setStatus(ctx context.Context, actor residency.Profile, id, status string) (Task, error) {
	if err := residency.RequireModerator(actor); err != nil {
		return Task{}, err
	}
	err := svc.store.Update(ctx, TasksCollection, id, docstore.Data{
		"status":    status,
		"updatedAt": docstore.ServerTimestamp,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, errors.Wrap(err, "updating task status")
	}
	return svc.Get(ctx, id)
}

// Delete removes a task along with its comments.
func (svc *Service) Delete(ctx context.Context, actor residency.Profile, id string) error {
	if err := residency.RequireModerator(actor); err != nil {
		return err
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}

	comments, err := svc.store.Query(ctx, CommentsCollection(id), docstore.Query{})
	if err != nil {
		return errors.Wrap(err, "listing task comments")
	}
	for _, c := range comments {
		if err = svc.store.Delete(ctx, c.Collection, c.ID); err != nil {
			return errors.Wrap(err, "deleting task comment")
		}
	}
	if err = svc.store.Delete(ctx, TasksCollection, id); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}

func (svc *Service) AddComment(ctx context.Context, actor residency.Profile, taskID string, nc NewComment) (Comment, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Comment{}, err
	}
	if _, err := svc.Get(ctx, taskID); err != nil {
		return Comment{}, err
	}

	coll := CommentsCollection(taskID)
	id, err := svc.store.Add(ctx, coll, docstore.Data{
		"text":       nc.Text,
		"authorUid":  actor.ID,
		"authorName": core.FirstNonBlank(actor.Name, defaultAuthorName),
		"authorApt":  actor.Apt,
		"createdAt":  docstore.ServerTimestamp,
	})
	if err != nil {
		return Comment{}, errors.Wrap(err, "adding comment")
	}
	doc, err := svc.store.Get(ctx, coll, id)
	if err != nil {
		return Comment{}, errors.Wrap(err, "getting comment")
	}
	return commentFromDoc(doc), nil
}

// ListComments returns the comments of a task, oldest first.
func (svc *Service) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	if _, err := svc.Get(ctx, taskID); err != nil {
		return nil, err
	}
	docs, err := svc.store.Query(ctx, CommentsCollection(taskID), docstore.Query{OrderBy: "createdAt"})
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	comments := make([]Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, commentFromDoc(doc))
	}
	return comments, nil
}

// Seed makes sure a task exists for each title, under a stable id. Existing tasks are left untouched,
// so seeding is safe to repeat. It returns how many tasks were created.
func (svc *Service) Seed(ctx context.Context, titles []string) (int, error) {
	var created int
	for _, title := range titles {
		title = core.CleanString(title)
		if Slugify(title) == "" {
			continue
		}
		id := StaticTaskID(title)

		var isNew bool
		err := svc.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			isNew = false
			_, err := tx.Get(ctx, TasksCollection, id)
			if err == nil {
				return nil
			}
			if !errors.Is(err, docstore.ErrNotFound) {
				return err
			}
			isNew = true
			return tx.Set(ctx, TasksCollection, id, docstore.Data{
				"title":         title,
				"description":   "",
				"category":      defaultCategory,
				"status":        StatusTodo,
				"createdAt":     docstore.ServerTimestamp,
				"createdByName": systemAuthorName,
			}, docstore.Merge())
		})
		if err != nil {
			return created, errors.Wrapf(err, "seeding task %q", title)
		}
		if isNew {
			created++
			svc.logger.Debug(fmt.Sprintf("board: seeded task %s", id))
		}
	}
	return created, nil
}
