package models

import (
	"context"

	"github.com/dyluth/cantas/pkg/board"
)

func registerInliners(s *board.Serializer) {
	s.Inline(User, inlineUser)
	s.Inline(Board, inlineCreator)
	s.Inline(Attachment, inlineUploader)
	s.Inline(Card, inlineBadges)
	s.Inline(Card, inlineCover)
	s.Inline(Card, inlineParents)
}

// Password hashes never leave the server.
func inlineUser(_ context.Context, _ *board.Serializer, _ *board.Document, out map[string]any) error {
	delete(out, "password")
	return nil
}

func inlineCreator(ctx context.Context, s *board.Serializer, doc *board.Document, out map[string]any) error {
	return s.InlineReference(ctx, doc, "creatorId", out)
}

func inlineUploader(ctx context.Context, s *board.Serializer, doc *board.Document, out map[string]any) error {
	return s.InlineReference(ctx, doc, "uploaderId", out)
}

// Badges summarises the activity on a card.
type Badges struct {
	VotesNo           int `json:"votesNo"`
	VotesYes          int `json:"votesYes"`
	Comments          int `json:"comments"`
	Attachments       int `json:"attachments"`
	CheckItems        int `json:"checkitems"`
	CheckItemsChecked int `json:"checkitemsChecked"`
}

// CardBadges counts the votes, comments, attachments and checklist items of a card.
func CardBadges(ctx context.Context, r board.Reader, card *board.Document) (Badges, error) {
	var b Badges
	count := func(typeName string, fields map[string]any) (int, error) {
		rs, err := r.Filter(ctx, Type(typeName), board.Where(fields))
		if err != nil {
			return 0, err
		}
		return rs.Len(), nil
	}

	var err error
	if b.VotesNo, err = count(Vote, map[string]any{"cardId": card.ID, "yesOrNo": false}); err != nil {
		return b, err
	}
	if b.VotesYes, err = count(Vote, map[string]any{"cardId": card.ID, "yesOrNo": true}); err != nil {
		return b, err
	}
	if b.Comments, err = count(Comment, map[string]any{"cardId": card.ID}); err != nil {
		return b, err
	}
	if b.Attachments, err = count(Attachment, map[string]any{"cardId": card.ID}); err != nil {
		return b, err
	}

	checklists, err := r.Filter(ctx, Type(Checklist), board.Where(map[string]any{"cardId": card.ID}))
	if err != nil {
		return b, err
	}
	if !checklists.Exists() {
		return b, nil
	}
	items, err := r.Filter(ctx, Type(ChecklistItem), board.Query{
		Where: map[string]any{},
		Or:    checklistConditions(checklists.IDs()),
	})
	if err != nil {
		return b, err
	}
	b.CheckItems = items.Len()
	for _, item := range items.Docs {
		if item.Bool("checked") {
			b.CheckItemsChecked++
		}
	}
	return b, nil
}

func checklistConditions(ids []string) []map[string]any {
	conds := make([]map[string]any, len(ids))
	for i, id := range ids {
		conds[i] = map[string]any{"checklistId": id}
	}
	return conds
}

func inlineBadges(ctx context.Context, s *board.Serializer, doc *board.Document, out map[string]any) error {
	b, err := CardBadges(ctx, s.Reader(), doc)
	if err != nil {
		return err
	}
	out["badges"] = map[string]any{
		"votesNo":           b.VotesNo,
		"votesYes":          b.VotesYes,
		"comments":          b.Comments,
		"attachments":       b.Attachments,
		"checkitems":        b.CheckItems,
		"checkitemsChecked": b.CheckItemsChecked,
	}
	return nil
}

// inlineCover sets "cover" to the cover attachment's card thumbnail, falling
// back to its path, or "" when the card has no cover.
func inlineCover(ctx context.Context, s *board.Serializer, doc *board.Document, out map[string]any) error {
	covers, err := s.Reader().Filter(ctx, Type(Attachment), board.Where(map[string]any{"cardId": doc.ID, "isCover": true}))
	if err != nil {
		return err
	}
	out["cover"] = ""
	if a := covers.First(); a != nil {
		if thumb := a.String("cardThumbPath"); thumb != "" {
			out["cover"] = thumb
		} else {
			out["cover"] = a.String("path")
		}
	}
	return nil
}

func inlineParents(ctx context.Context, s *board.Serializer, doc *board.Document, out map[string]any) error {
	for key, field := range map[string]string{"board": "boardId", "list": "listId"} {
		parent, err := s.Dereference(ctx, doc, field)
		if err != nil {
			return err
		}
		if parent == nil {
			out[key] = nil
			continue
		}
		m, err := s.Serialize(ctx, parent)
		if err != nil {
			return err
		}
		out[key] = m
	}
	return nil
}
