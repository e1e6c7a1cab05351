package suggestion

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

const (
	SuggestionsCollection = "suggestions"
	VotesCollection       = "suggestionVotes"

	MaxTitleLen  = 120
	defaultTitle = "Sugestão"
)

// Statuses
const (
	StatusPending  = "pendente"
	StatusApproved = "aprovada"
	StatusRejected = "rejeitada"
)

// Votes
const (
	VoteYes = "yes"
	VoteNo  = "no"
)

type Suggestion struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Text        string     `json:"text"`
	Status      string     `json:"status"`
	AuthorUID   string     `json:"author_uid"`
	AuthorName  string     `json:"author_name"`
	AuthorApt   int        `json:"author_apt"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at"`

	Yes    int    `json:"yes"`
	No     int    `json:"no"`
	MyVote string `json:"my_vote"` // empty if the viewer did not vote
}

func suggestionFromDoc(doc docstore.Document) Suggestion {
	return Suggestion{
		ID:          doc.ID,
		Title:       docstore.String(doc.Data["title"]),
		Description: docstore.String(doc.Data["description"]),
		Text:        docstore.String(doc.Data["text"]),
		Status:      docstore.String(doc.Data["status"]),
		AuthorUID:   docstore.String(doc.Data["authorUid"]),
		AuthorName:  docstore.String(doc.Data["authorName"]),
		AuthorApt:   docstore.Int(doc.Data["authorApt"]),
		CreatedAt:   docstore.Time(doc.Data["createdAt"]),
		DecidedAt:   docstore.TimePtr(doc.Data["decidedAt"]),
	}
}

type NewSuggestion struct {
	Text string `json:"text" validate:"required,notblank"`
}

func (ns *NewSuggestion) Validate(validate *validator.Validate) error {
	ns.Text = core.CleanString(ns.Text)
	return validate.Struct(ns)
}

// split derives the title and the description of a suggestion from its text:
// the first line is the title, the rest the description.
func split(text string) (title, description string) {
	lines := strings.SplitN(strings.ReplaceAll(text, "\r\n", "\n"), "\n", 2)
	title = core.TruncateRunes(core.CleanString(lines[0]), MaxTitleLen)
	if title == "" {
		title = defaultTitle
	}
	if len(lines) > 1 {
		description = core.CleanString(lines[1])
	}
	return title, description
}

// VoteID is the id of the vote of uid on a suggestion; a person has one vote per suggestion.
func VoteID(suggestionID, uid string) string {
	return suggestionID + "_" + uid
}

func IsValidVote(v string) bool { return v == VoteYes || v == VoteNo }

func IsValidDecision(d string) bool { return d == StatusApproved || d == StatusRejected }
