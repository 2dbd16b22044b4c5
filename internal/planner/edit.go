package planner

import (
	"context"
	"fmt"
	"reflect"

	"github.com/benvon/tripflow/internal/models"
)

// EditSession is an in-progress edit of one activity. The caller owns it and may
// discard it at any time to cancel; nothing is written until CommitEdit.
type EditSession struct {
	Original models.Activity
	Draft    models.Activity
}

// BeginEdit opens an edit session for the activity with the given id
func (s *ActivityStore) BeginEdit(id string) (*EditSession, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
	}
	original := s.day.Activities[idx].Clone()
	return &EditSession{
		Original: original,
		Draft:    original.Clone(),
	}, nil
}

// CommitEdit validates the session's draft as a full replacement of the original
// and writes it in place. The original's slot is the validation context.
func (s *ActivityStore) CommitEdit(ctx context.Context, session *EditSession) (models.Activity, error) {
	idx := s.indexOf(session.Original.ID)
	if idx < 0 {
		return models.Activity{}, fmt.Errorf("%w: %s", ErrActivityNotFound, session.Original.ID)
	}
	if !reflect.DeepEqual(s.day.Activities[idx], session.Original) {
		return models.Activity{}, ErrStaleEdit
	}

	slot, err := SlotFor(s.day, session.Original.Start)
	if err != nil {
		return models.Activity{}, err
	}

	draft := session.Draft.Clone()
	draft.ID = session.Original.ID
	draft.Source = session.Original.Source
	updated, err := Validate(draft, slot, s.day)
	if err != nil {
		return models.Activity{}, err
	}

	next := s.day.Clone()
	next.Activities[idx] = updated
	SortActivities(next.Activities)
	if err := s.commit(ctx, next); err != nil {
		return models.Activity{}, err
	}
	return updated.Clone(), nil
}
