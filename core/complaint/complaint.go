// Package complaint collects residents' complaints for the moderators.
package complaint

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

const ComplaintsCollection = "complaints"

// FollowUpMessage pre-fills the conversation a resident opens about their own complaint.
const FollowUpMessage = "Olá, gostaria de falar sobre minha queixa."

type (
	Complaint struct {
		ID          string    `json:"id"`
		Text        string    `json:"text"`
		Category    string    `json:"category"`
		AuthorUID   string    `json:"author_uid"`
		AuthorName  string    `json:"author_name"`
		AuthorApt   int       `json:"author_apt"`
		AuthorPhone string    `json:"author_phone"`
		CreatedAt   time.Time `json:"created_at"`
		// ContactHref opens a conversation with the author, empty when their phone is unknown.
		ContactHref string `json:"contact_href"`
		// WhatsAppHref is set on submission only: the author's own wa.me link, with FollowUpMessage.
		WhatsAppHref string `json:"whatsapp_href,omitempty"`
	}

	NewComplaint struct {
		Text     string `json:"text" validate:"required,notblank"`
		Category string `json:"category" validate:"required,notblank"`
	}
)

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	nc.Category = core.CleanString(nc.Category)
	return validate.Struct(nc)
}

func complaintFromDoc(doc docstore.Document) Complaint {
	c := Complaint{
		ID:          doc.ID,
		Text:        docstore.String(doc.Data["text"]),
		Category:    docstore.String(doc.Data["category"]),
		AuthorUID:   docstore.String(doc.Data["authorUid"]),
		AuthorName:  docstore.String(doc.Data["authorName"]),
		AuthorApt:   docstore.Int(doc.Data["authorApt"]),
		AuthorPhone: docstore.String(doc.Data["authorPhone"]),
		CreatedAt:   docstore.Time(doc.Data["createdAt"]),
	}
	c.ContactHref = residency.ContactHref(c.AuthorPhone)
	return c
}

type Service struct {
	store    docstore.Store
	validate *validator.Validate
}

func NewService(store docstore.Store, validate *validator.Validate) *Service {
	return &Service{store: store, validate: validate}
}

func (svc *Service) Submit(ctx context.Context, author residency.Profile, nc NewComplaint) (Complaint, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Complaint{}, err
	}
	id, err := svc.store.Add(ctx, ComplaintsCollection, docstore.Data{
		"text":        nc.Text,
		"category":    nc.Category,
		"authorUid":   author.ID,
		"authorName":  author.Name,
		"authorApt":   author.Apt,
		"authorPhone": author.Phone,
		"createdAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return Complaint{}, errors.Wrap(err, "adding complaint")
	}
	doc, err := svc.store.Get(ctx, ComplaintsCollection, id)
	if err != nil {
		return Complaint{}, errors.Wrap(err, "getting complaint")
	}
	c := complaintFromDoc(doc)
	c.WhatsAppHref = residency.WhatsAppHref(author.Phone, FollowUpMessage)
	return c, nil
}

// List returns every complaint, newest first. Complaints carry contact details: only moderators see them.
func (svc *Service) List(ctx context.Context, actor residency.Profile) ([]Complaint, error) {
	if err := residency.RequireModerator(actor); err != nil {
		return nil, err
	}
	docs, err := svc.store.Query(ctx, ComplaintsCollection, docstore.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, errors.Wrap(err, "listing complaints")
	}
	out := make([]Complaint, 0, len(docs))
	for _, doc := range docs {
		out = append(out, complaintFromDoc(doc))
	}
	return out, nil
}
