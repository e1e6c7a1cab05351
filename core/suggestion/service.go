// Package suggestion is the suggestion box: residents submit and vote, moderators approve or reject.
package suggestion

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

var (
	// errors
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrInvalidVote        = errors.Errorf("invalid vote: use %s or %s", VoteYes, VoteNo)
	ErrInvalidDecision    = errors.Errorf("invalid decision: use %s or %s", StatusApproved, StatusRejected)
	ErrClosed             = errors.New("suggestion is closed for voting")
)

type Service struct {
	store    docstore.Store
	logger   core.Logger
	validate *validator.Validate
}

func NewService(store docstore.Store, logger core.Logger, validate *validator.Validate) *Service {
	return &Service{store: store, logger: logger, validate: validate}
}

func (svc *Service) Submit(ctx context.Context, author residency.Profile, ns NewSuggestion) (Suggestion, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Suggestion{}, err
	}
	title, description := split(ns.Text)

	id, err := svc.store.Add(ctx, SuggestionsCollection, docstore.Data{
		"title":       title,
		"description": description,
		"text":        ns.Text,
		"status":      StatusPending,
		"authorUid":   author.ID,
		"authorName":  author.Name,
		"authorApt":   author.Apt,
		"createdAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return Suggestion{}, errors.Wrap(err, "adding suggestion")
	}
	return svc.Get(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id string) (Suggestion, error) {
	doc, err := svc.store.Get(ctx, SuggestionsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Suggestion{}, ErrSuggestionNotFound
		}
		return Suggestion{}, errors.Wrap(err, "getting suggestion")
	}
	return suggestionFromDoc(doc), nil
}

// ListVisible returns the pending and approved suggestions, newest first, with their tallies
// and the vote of viewer.
func (svc *Service) ListVisible(ctx context.Context, viewer residency.Profile) ([]Suggestion, error) {
	docs, err := svc.store.Query(ctx, SuggestionsCollection, docstore.Query{
		Where:   []docstore.Filter{docstore.Where("status", docstore.OpIn, []string{StatusPending, StatusApproved})},
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing suggestions")
	}
	if len(docs) == 0 {
		return []Suggestion{}, nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	votes, err := svc.store.Query(ctx, VotesCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("suggestionId", docstore.OpIn, ids)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing votes")
	}

	type tally struct {
		yes, no int
		mine    string
	}
	tallies := make(map[string]*tally, len(docs))
	for _, v := range votes {
		sid := docstore.String(v.Data["suggestionId"])
		t, ok := tallies[sid]
		if !ok {
			t = new(tally)
			tallies[sid] = t
		}
		value := docstore.String(v.Data["value"])
		switch value {
		case VoteYes:
			t.yes++
		case VoteNo:
			t.no++
		default:
			continue
		}
		if viewer.ID != "" && docstore.String(v.Data["uid"]) == viewer.ID {
			t.mine = value
		}
	}

	out := make([]Suggestion, 0, len(docs))
	for _, doc := range docs {
		s := suggestionFromDoc(doc)
		if t, ok := tallies[s.ID]; ok {
			s.Yes, s.No, s.MyVote = t.yes, t.no, t.mine
		}
		out = append(out, s)
	}
	return out, nil
}

// Vote toggles the vote of voter: a first vote is recorded, repeating it withdraws it and the
// opposite value replaces it. It returns the vote in place afterwards, empty if withdrawn.
func (svc *Service) Vote(ctx context.Context, voter residency.Profile, suggestionID, value string) (string, error) {
	if !IsValidVote(value) {
		return "", core.NewFieldError("value", ErrInvalidVote)
	}
	voteID := VoteID(suggestionID, voter.ID)

	var current string
	err := svc.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		sdoc, err := tx.Get(ctx, SuggestionsCollection, suggestionID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrSuggestionNotFound
			}
			return err
		}
		if docstore.String(sdoc.Data["status"]) == StatusRejected {
			return ErrClosed
		}

		vdoc, err := tx.Get(ctx, VotesCollection, voteID)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			current = value
			return tx.Set(ctx, VotesCollection, voteID, docstore.Data{
				"suggestionId": suggestionID,
				"uid":          voter.ID,
				"value":        value,
				"createdAt":    docstore.ServerTimestamp,
			})
		case err != nil:
			return err
		case docstore.String(vdoc.Data["value"]) == value:
			current = ""
			return tx.Delete(ctx, VotesCollection, voteID)
		default:
			current = value
			return tx.Set(ctx, VotesCollection, voteID, docstore.Data{
				"value":     value,
				"changedAt": docstore.ServerTimestamp,
			}, docstore.Merge())
		}
	})
	if err != nil {
		if errors.Is(err, ErrSuggestionNotFound) || errors.Is(err, ErrClosed) {
			return "", errors.Cause(err)
		}
		return "", errors.Wrap(err, "voting")
	}
	return current, nil
}

// ListPending returns the suggestions waiting for a decision, newest first. Suggestions stored
// without a status count as pending.
func (svc *Service) ListPending(ctx context.Context, actor residency.Profile) ([]Suggestion, error) {
	if err := residency.RequireModerator(actor); err != nil {
		return nil, err
	}
	docs, err := svc.store.Query(ctx, SuggestionsCollection, docstore.Query{
		Where:   []docstore.Filter{docstore.Where("status", docstore.OpIn, []interface{}{StatusPending, nil})},
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing pending suggestions")
	}
	out := make([]Suggestion, 0, len(docs))
	for _, doc := range docs {
		out = append(out, suggestionFromDoc(doc))
	}
	return out, nil
}

func (svc *Service) Decide(ctx context.Context, actor residency.Profile, id, decision string) (Suggestion, error) {
	if err := residency.RequireModerator(actor); err != nil {
		return Suggestion{}, err
	}
	if !IsValidDecision(decision) {
		return Suggestion{}, core.NewFieldError("decision", ErrInvalidDecision)
	}
	err := svc.store.Update(ctx, SuggestionsCollection, id, docstore.Data{
		"status":    decision,
		"decidedAt": docstore.ServerTimestamp,
		"decidedBy": actor.ID,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Suggestion{}, ErrSuggestionNotFound
		}
		return Suggestion{}, errors.Wrap(err, "deciding suggestion")
	}
	return svc.Get(ctx, id)
}
