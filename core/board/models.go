package board

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

const (
	TasksCollection = "tasks"

	DueDateLayout = "2006-01-02"

	defaultCategory   = "geral"
	defaultAuthorName = "Morador"
	systemAuthorName  = "Sistema"
	staticIDPrefix    = "static_"
)

// Statuses
const (
	StatusTodo  = "todo"
	StatusDoing = "doing"
	StatusLate  = "late"
	StatusDone  = "done"

	// labels written by older clients
	legacyOpen       = "aberta"
	legacyInProgress = "em_andamento"
	legacyDone       = "concluida"
	legacyOverdue    = "overdue"
)

// Filters of ListOpen
const (
	FilterAll    = "all"
	FilterLate   = "late"
	FilterOnTime = "ontime"
)

// CommentsCollection is the subcollection holding the comments of a task.
func CommentsCollection(taskID string) string {
	return TasksCollection + "/" + taskID + "/comments"
}

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	CreatedBy     string     `json:"created_by"`
	CreatedByName string     `json:"created_by_name"`
}

func taskFromDoc(doc docstore.Document) Task {
	return Task{
		ID:            doc.ID,
		Title:         docstore.String(doc.Data["title"]),
		Description:   docstore.String(doc.Data["description"]),
		Category:      docstore.String(doc.Data["category"]),
		Status:        docstore.String(doc.Data["status"]),
		DueDate:       docstore.TimePtr(doc.Data["dueDate"]),
		CreatedAt:     docstore.Time(doc.Data["createdAt"]),
		UpdatedAt:     docstore.TimePtr(doc.Data["updatedAt"]),
		CreatedBy:     docstore.String(doc.Data["createdBy"]),
		CreatedByName: docstore.String(doc.Data["createdByName"]),
	}
}

// lastChange is the time a task was last touched.
func (t Task) lastChange() time.Time {
	if t.UpdatedAt != nil {
		return *t.UpdatedAt
	}
	return t.CreatedAt
}

// NewTask contains information needed to create a task.
type NewTask struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (nt *NewTask) Clean() {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Category = core.CleanString(nt.Category, true /* lower */)
	nt.DueDate = core.CleanString(nt.DueDate)
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Clean()
	return validate.Struct(nt)
}

// dueDate reads the due date as local midnight of its day.
func (nt NewTask) dueDate() (*time.Time, error) {
	if nt.DueDate == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DueDateLayout, nt.DueDate, time.Local)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type Comment struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	AuthorUID  string    `json:"author_uid"`
	AuthorName string    `json:"author_name"`
	AuthorApt  int       `json:"author_apt"`
	CreatedAt  time.Time `json:"created_at"`
}

func commentFromDoc(doc docstore.Document) Comment {
	return Comment{
		ID:         doc.ID,
		Text:       docstore.String(doc.Data["text"]),
		AuthorUID:  docstore.String(doc.Data["authorUid"]),
		AuthorName: docstore.String(doc.Data["authorName"]),
		AuthorApt:  docstore.Int(doc.Data["authorApt"]),
		CreatedAt:  docstore.Time(doc.Data["createdAt"]),
	}
}

type NewComment struct {
	Text string `json:"text" validate:"required,notblank"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	return validate.Struct(nc)
}

// NormalizeStatus maps a stored status to the one shown on the open board. ok is false for done tasks.
// An open task past its due date is late; unknown labels fall back to todo.
func NormalizeStatus(status string, due *time.Time, now time.Time) (normalized string, ok bool) {
	switch strings.ToLower(core.CleanString(status)) {
	case StatusDone, legacyDone:
		return "", false
	case StatusTodo, legacyOpen:
		normalized = StatusTodo
	case StatusDoing, legacyInProgress:
		normalized = StatusDoing
	case StatusLate, legacyOverdue:
		normalized = StatusLate
	default:
		normalized = StatusTodo
	}
	if due != nil && due.Before(now) {
		normalized = StatusLate
	}
	return normalized, true
}

// IsValidFilter reports whether f is a filter of ListOpen; an empty filter means FilterAll.
func IsValidFilter(f string) bool {
	switch f {
	case "", FilterAll, FilterLate, FilterOnTime:
		return true
	}
	return false
}

func matchFilter(filter, status string) bool {
	switch filter {
	case FilterLate:
		return status == StatusLate
	case FilterOnTime:
		return status == StatusTodo || status == StatusDoing
	default:
		return true
	}
}
