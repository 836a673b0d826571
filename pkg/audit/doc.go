// Package audit records administrative events to an append-only sink.
//
// A Logger builds an Event from functional options, validates it and hands it
// to a Storage. Three storages are provided:
//
//   - MemoryStorage keeps events in process, for tests and single-node setups.
//   - PostgresStorage inserts into the audit_logs table (see pkg/pg migrations).
//   - MongoStorage inserts into a MongoDB collection.
//
// Writes can be batched through an AsyncWriter, which collects events from
// concurrent callers and flushes them with one StoreBatch call:
//
//	writer, closeWriter := audit.NewAsyncWriter(audit.NewPostgresStorage(pool), audit.AsyncOptions{})
//	defer closeWriter(ctx)
//
//	log := audit.NewLogger(writer, audit.WithHasher(hasher))
//	err := log.Log(ctx, "credits.adjusted", "deduct",
//	    audit.WithActor("admin@example.com"),
//	    audit.WithAccount(account),
//	    audit.WithDetail("requested_tenths", 100),
//	)
//
// Event ids are ULIDs, so they sort by creation time, unless WithIDGenerator
// replaces them.
//
// Guest identifiers are weak, cookie derived ids. When the logger has a Hasher,
// WithAccount stores a keyed hash of guest ids instead of the raw value.
package audit
