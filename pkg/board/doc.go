// Package board provides the generic document model, Redis-backed document
// store and wire mapping for the Cantas board service.
//
// # Overview
//
// Cantas persists heterogeneous entities (boards, lists, cards, comments, ...)
// as documents. Each kind of document is described by an EntityType: a named,
// ordered set of Field descriptors. Everything else in this package is driven
// by those descriptors rather than by per-entity code:
//
//   - the storage codec (DocumentToHash / HashToDocument) converts documents to
//     and from Redis hashes;
//   - the Serializer maps a document to its transport form (the "wire" map
//     sent to browsers), optionally composed with per-type Inliners;
//   - the Repository creates, reads, filters and saves documents, and its
//     Update method is the partial-update engine that coerces inbound JSON
//     values into typed field values and resolves references;
//   - Query and ResultSet implement exact-match filtering and the
//     de-duplicating Union of two result sets.
//
// # Field kinds
//
// Scalars (String, Int, Float, Bool, Map) pass through opaquely. Timestamps
// may be stamped once at creation (AutoNow) or on every save (AutoNowUpdate).
// References hold the identifier of exactly one document of the target type.
// Embedded fields hold a nested value described by an embedded EntityType.
// List fields hold ordered sequences of any of the above.
//
// # Usage Example
//
//	catalog := board.NewCatalog()
//	catalog.MustRegister(&board.EntityType{
//		Name: "Note",
//		CRUD: true,
//		Fields: []board.Field{
//			board.String("title").Require(),
//			board.Timestamp("updated").AutoUpdate(),
//		},
//	})
//	if err := catalog.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	client, _ := board.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	repo := board.NewRepository(client)
//	note, err := repo.Create(ctx, catalog.MustType("Note"), map[string]any{"title": "hello"})
//
// # Redis Schema
//
// Documents: cantas:{instance}:{type}:doc:{id} (hash, one JSON-encoded value per field)
// Type index: cantas:{instance}:{type}:ids (ZSET scored by creation time)
// Broadcasts: cantas:{instance}:broadcasts (Pub/Sub)
package board
