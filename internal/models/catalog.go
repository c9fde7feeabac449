// Package models declares the Cantas entity types and the board-specific
// behaviour built on top of the generic document store: serialization
// inliners, membership rules and the default board layout.
package models

import (
	"sync"

	"github.com/dyluth/cantas/pkg/board"
)

// Entity type names.
const (
	Action                = "Action"
	Activity              = "Activity"
	Attachment            = "Attachment"
	Board                 = "Board"
	BoardMemberRelation   = "BoardMemberRelation"
	Card                  = "Card"
	CardLabelRelation     = "CardLabelRelation"
	CardSourceRelation    = "CardSourceRelation"
	Checklist             = "Checklist"
	ChecklistItem         = "ChecklistItem"
	Comment               = "Comment"
	CommentSourceRelation = "CommentSourceRelation"
	Group                 = "Group"
	Label                 = "Label"
	List                  = "List"
	LabelMetadata         = "LabelMetadata"
	Notification          = "Notification"
	Organization          = "Organization"
	Permission            = "Permission"
	Role                  = "Role"
	SyncConfig            = "SyncConfig"
	User                  = "User"
	Vote                  = "Vote"

	// Embedded value types.
	Perm    = "Perm"
	PermSet = "PermSet"
)

// Board member statuses.
const (
	MemberUnknown   = "unknown"
	MemberAvailable = "available"
	MemberInviting  = "inviting"
	MemberKickedOff = "kickedOff"
)

// Notification types.
const (
	NotificationInvitation   = "invitation"
	NotificationSubscription = "subscription"
	NotificationMentioned    = "mentioned"
	NotificationInformation  = "information"
)

var catalog = sync.OnceValue(func() *board.Catalog {
	c := board.NewCatalog()
	for _, t := range entityTypes() {
		c.MustRegister(t)
	}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
})

// Catalog returns the validated catalog of every Cantas entity type.
// The catalog is built once and is read-only.
func Catalog() *board.Catalog {
	return catalog()
}

// Type returns the named Cantas entity type. It panics for unknown names.
func Type(name string) *board.EntityType {
	return catalog().MustType(name)
}

func userRefs(name string) board.Field {
	return board.List(name, board.Reference("", User))
}

func entityTypes() []*board.EntityType {
	return []*board.EntityType{
		{
			Name:     PermSet,
			Embedded: true,
			Fields: []board.Field{
				userRefs("users"),
				board.List("roles", board.Reference("", Role)),
			},
		},
		{
			Name:     Perm,
			Embedded: true,
			Fields: []board.Field{
				board.Embedded("delete", PermSet),
				board.Embedded("update", PermSet),
			},
		},
		{
			Name: Action,
			Fields: []board.Field{
				board.Reference("idMemberCreator", User),
				board.Map("data"),
				board.String("type"),
				board.Timestamp("created").AutoCreate(),
			},
		},
		{
			Name: Activity,
			CRUD: true,
			Fields: []board.Field{
				board.String("content").Require(),
				board.Reference("creatorId", User),
				board.Reference("boardId", Board),
				board.Timestamp("createdOn").AutoCreate(),
			},
		},
		{
			Name: Attachment,
			CRUD: true,
			Fields: []board.Field{
				board.Reference("cardId", Card).Require(),
				board.Reference("uploaderId", User),
				board.String("name").Require(),
				board.Float("size").Require(),
				board.String("fileType").WithDefault("other"),
				board.String("path").Require(),
				board.Bool("isCover").WithDefault(false),
				board.String("cardThumbPath").WithDefault(""),
				board.String("cardDetailThumbPath").WithDefault(""),
				board.Timestamp("createdOn").AutoCreate(),
			},
		},
		{
			Name: Board,
			CRUD: true,
			Fields: []board.Field{
				board.String("title").Require(),
				board.String("description").WithDefault(""),
				board.Bool("isClosed").WithDefault(false),
				board.Timestamp("updated").AutoUpdate(),
				board.Timestamp("created").AutoCreate(),
				board.Reference("creatorId", User).Require(),
				board.Reference("groupId", Group),
				board.Bool("isPublic").WithDefault(true),
				board.String("voteStatus").WithDefault("enabled"),
				board.String("commentStatus").WithDefault("enabled"),
				board.Embedded("perms", Perm),
			},
		},
		{
			Name: BoardMemberRelation,
			CRUD: true,
			Fields: []board.Field{
				board.Reference("boardId", Board).Require(),
				board.Reference("userId", User).Require(),
				board.Timestamp("addedOn").AutoCreate(),
				board.Timestamp("quitOn"),
				board.String("status").WithDefault(MemberAvailable),
			},
		},
		{
			Name: Card,
			CRUD: true,
			Fields: []board.Field{
				board.String("title").Require(),
				board.String("description").WithDefault("Description"),
				board.Bool("isArchived").WithDefault(false),
				board.Timestamp("updated").AutoUpdate(),
				board.Timestamp("created").AutoCreate(),
				board.Timestamp("dueDate"),
				board.Int("order").WithDefault(int64(-1)),
				board.Reference("creatorId", User).Require(),
				userRefs("assignees"),
				board.Reference("listId", List).Require(),
				board.Reference("boardId", Board).Require(),
				userRefs("subscribeUserIds"),
			},
		},
		{
			Name: CardLabelRelation,
			CRUD: true,
			Fields: []board.Field{
				board.Reference("boardId", Board).Require(),
				board.Reference("cardId", Card).Require(),
				board.Reference("labelId", Label).Require(),
				board.Bool("selected").WithDefault(false),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: CardSourceRelation,
			Fields: []board.Field{
				board.Reference("syncConfigId", SyncConfig).Require(),
				board.Reference("cardId", Card).Require(),
				board.String("sourceId").Require(),
				board.String("sourceType").Require(),
				board.Timestamp("lastSyncTime").AutoCreate(),
			},
		},
		{
			Name: Checklist,
			CRUD: true,
			Fields: []board.Field{
				board.String("title").WithDefault("New Checklist"),
				board.Reference("cardId", Card).Require(),
				board.Reference("authorId", User).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: ChecklistItem,
			CRUD: true,
			Fields: []board.Field{
				board.String("content").Require(),
				board.Bool("checked").WithDefault(false),
				board.Int("order").WithDefault(int64(1)),
				board.Reference("checklistId", Checklist).Require(),
				board.Reference("cardId", Card).Require(),
				board.Reference("authorId", User).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: Comment,
			CRUD: true,
			Fields: []board.Field{
				board.String("content").Require(),
				board.Reference("cardId", Card).Require(),
				board.Reference("authorId", User).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: CommentSourceRelation,
			Fields: []board.Field{
				board.Reference("commentId", Comment).Require(),
				board.Reference("cardId", Card).Require(),
				board.String("sourceId").Require(),
				board.String("sourceType").Require(),
				board.Timestamp("lastSyncTime").AutoCreate(),
			},
		},
		{
			Name: Group,
			Fields: []board.Field{
				board.String("name").Require(),
				board.String("description").WithDefault(""),
				board.Timestamp("created").AutoCreate(),
			},
		},
		{
			Name: Label,
			Fields: []board.Field{
				board.String("title").WithDefault(""),
				board.Int("order").Require(),
				board.String("color").Require(),
				board.Reference("boardId", Board).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: List,
			CRUD: true,
			Fields: []board.Field{
				board.String("title").Require(),
				board.Bool("isArchived").WithDefault(false),
				board.Timestamp("created").AutoCreate(),
				board.Reference("creatorId", User).Require(),
				board.Int("order").WithDefault(int64(-1)),
				board.Reference("boardId", Board).Require(),
				board.Embedded("perms", Perm),
			},
		},
		{
			Name: LabelMetadata,
			Fields: []board.Field{
				board.Int("order").Require(),
				board.String("title").WithDefault(""),
				board.String("color").Require(),
			},
		},
		{
			Name: Notification,
			CRUD: true,
			Fields: []board.Field{
				board.Reference("userId", User).Require(),
				board.String("massage").Require(),
				board.String("type").Require().WithDefault(NotificationInformation),
				board.Bool("isUnread").WithDefault(true),
				board.Timestamp("created").AutoCreate(),
			},
		},
		{
			Name: Organization,
			Fields: []board.Field{
				board.String("name"),
				board.String("description"),
			},
		},
		{
			Name: Permission,
			Fields: []board.Field{
				board.Reference("idMember", User),
				board.String("scope"),
				board.Timestamp("created").AutoCreate(),
			},
		},
		{
			Name: Role,
			Fields: []board.Field{
				board.String("name").Require(),
				board.Embedded("perms", Perm),
			},
		},
		{
			Name: SyncConfig,
			CRUD: true,
			Fields: []board.Field{
				board.Reference("boardId", Board).Require(),
				board.Reference("listId", List),
				board.String("queryUrl"),
				board.String("queryType").Require(),
				board.Bool("isActive").WithDefault(true),
				board.Int("intervalTime").WithDefault(int64(8)),
				board.Reference("creatorId", User).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
		{
			Name: User,
			Fields: []board.Field{
				board.String("username").Require(),
				board.String("fullname").WithDefault(""),
				board.String("password").WithDefault(""),
				board.String("email").WithDefault(""),
				board.Timestamp("joined").AutoCreate(),
				board.Bool("isFirstLogin").WithDefault(true),
				board.List("roles", board.Reference("", Role)),
				board.String("openId").WithDefault(""),
			},
		},
		{
			Name: Vote,
			CRUD: true,
			Fields: []board.Field{
				board.Bool("yesOrNo").WithDefault(true),
				board.Reference("cardId", Card).Require(),
				board.Reference("authorId", User).Require(),
				board.Timestamp("createdOn").AutoCreate(),
				board.Timestamp("updatedOn").AutoUpdate(),
			},
		},
	}
}
