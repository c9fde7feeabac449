package models

import (
	"context"
	"fmt"

	"github.com/dyluth/cantas/pkg/board"
)

// DefaultBoardTitle is the title of the board created for new users.
const DefaultBoardTitle = "Hello Cantas"

// DefaultLists are the lists created on every default board, with their order keys.
var DefaultLists = []struct {
	Title string
	Order int64
}{
	{"To Do", 65535},
	{"Doing", 131071},
	{"Done", 196607},
}

// CreateDefaultBoard creates a board titled DefaultBoardTitle for creator
// together with its default lists.
//
// The writes are independent: a failure part-way leaves the board and the
// lists created so far in place.
func (s *Service) CreateDefaultBoard(ctx context.Context, creator *board.Document) (*board.Document, error) {
	b, err := s.Create(ctx, Board, map[string]any{"title": DefaultBoardTitle, "creatorId": creator.ID})
	if err != nil {
		return nil, err
	}

	for _, l := range DefaultLists {
		_, err := s.Create(ctx, List, map[string]any{
			"title":     l.Title,
			"order":     l.Order,
			"creatorId": creator.ID,
			"boardId":   b.ID,
		})
		if err != nil {
			return b, fmt.Errorf("failed to create default list %q: %w", l.Title, err)
		}
	}

	return b, nil
}

// NewBoard creates a default board for user, records the creation activity
// and makes the user a member of the board.
func (s *Service) NewBoard(ctx context.Context, user *board.Document) (*board.Document, error) {
	b, err := s.CreateDefaultBoard(ctx, user)
	if err != nil {
		return nil, err
	}

	_, err = s.Create(ctx, Activity, map[string]any{
		"content":   fmt.Sprintf("This board is created by %s", user.String("username")),
		"creatorId": user.ID,
		"boardId":   b.ID,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.Create(ctx, BoardMemberRelation, map[string]any{
		"boardId": b.ID,
		"userId":  user.ID,
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

func activeMemberQuery(extra map[string]any) board.Query {
	return board.Query{
		Where: extra,
		Or: []map[string]any{
			{"status": MemberInviting},
			{"status": MemberAvailable},
		},
	}
}

// IsBoardMember reports whether the user is an invited or available member
// of the board, or its creator.
func (s *Service) IsBoardMember(ctx context.Context, userID, boardID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, Type(BoardMemberRelation), activeMemberQuery(map[string]any{
		"userId":  userID,
		"boardId": boardID,
	}))
	if err != nil || ok {
		return ok, err
	}

	b, err := s.Get(ctx, Board, boardID)
	if err != nil {
		return false, err
	}
	return b.RefID("creatorId") == userID, nil
}

// BoardMembers returns the users invited to or available on the board.
func (s *Service) BoardMembers(ctx context.Context, boardID string) ([]*board.Document, error) {
	relations, err := s.repo.Filter(ctx, Type(BoardMemberRelation), activeMemberQuery(map[string]any{"boardId": boardID}))
	if err != nil {
		return nil, err
	}

	users := make([]*board.Document, 0, relations.Len())
	for _, rel := range relations.Docs {
		u, err := s.Get(ctx, User, rel.RefID("userId"))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// InvitedBoards returns the boards the user has been invited to.
func (s *Service) InvitedBoards(ctx context.Context, userID string) (board.ResultSet, error) {
	relations, err := s.Filter(ctx, BoardMemberRelation, map[string]any{"status": MemberInviting, "userId": userID})
	if err != nil {
		return board.ResultSet{}, err
	}

	ids := make([]string, 0, relations.Len())
	for _, rel := range relations.Docs {
		ids = append(ids, rel.RefID("boardId"))
	}
	return s.repo.Filter(ctx, Type(Board), board.Query{IDs: ids})
}

// MyBoards returns the user's own open boards together with the boards the
// user has been invited to.
func (s *Service) MyBoards(ctx context.Context, userID string) (board.ResultSet, error) {
	own, err := s.Filter(ctx, Board, map[string]any{"creatorId": userID, "isClosed": false})
	if err != nil {
		return board.ResultSet{}, err
	}
	invited, err := s.InvitedBoards(ctx, userID)
	if err != nil {
		return board.ResultSet{}, err
	}
	return board.Union(own, invited)
}

// PublicBoards returns every open public board, least recently updated first.
func (s *Service) PublicBoards(ctx context.Context) (board.ResultSet, error) {
	return s.repo.Filter(ctx, Type(Board), board.Query{
		Where:   map[string]any{"isClosed": false, "isPublic": true},
		OrderBy: "updated",
	})
}

// ClosedBoards returns the user's closed boards, least recently updated first.
func (s *Service) ClosedBoards(ctx context.Context, userID string) (board.ResultSet, error) {
	return s.repo.Filter(ctx, Type(Board), board.Query{
		Where:   map[string]any{"creatorId": userID, "isClosed": true},
		OrderBy: "updated",
	})
}

// MyCards returns the user's open cards.
func (s *Service) MyCards(ctx context.Context, userID string) (board.ResultSet, error) {
	return s.Filter(ctx, Card, map[string]any{"isArchived": false, "creatorId": userID})
}

// ArchivedCards returns the archived cards of a board.
func (s *Service) ArchivedCards(ctx context.Context, boardID string) (board.ResultSet, error) {
	return s.Filter(ctx, Card, map[string]any{"isArchived": true, "boardId": boardID})
}

// ArchivedLists returns the archived lists of a board.
func (s *Service) ArchivedLists(ctx context.Context, boardID string) (board.ResultSet, error) {
	return s.Filter(ctx, List, map[string]any{"isArchived": true, "boardId": boardID})
}

// ListCards returns the open cards of a list.
func (s *Service) ListCards(ctx context.Context, listID string) (board.ResultSet, error) {
	return s.Filter(ctx, Card, map[string]any{"listId": listID, "isArchived": false})
}
