// Package session manages live board sessions and their storage.
//
// Manager keeps sessions in memory behind an RWMutex, keyed by a
// case-insensitive ID. Generated IDs are four hex characters drawn from
// crypto/rand; callers may also supply their own ID of letters, digits,
// '-' or '_'.
//
// Persistence is optional. Two SessionPersistence backends are provided:
//
//   - FilePersistence writes one indented JSON file per session.
//   - SQLitePersistence keeps a single sessions table in a SQLite database.
//
// Both store a PersistedSessionData record: IDs, timestamps, the board
// config, the serialized grid and the operation history. A session missing
// from memory is loaded from the backend on first access.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("sessions.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	sess, err := manager.Create("", boardConfig)
//	sess, err = manager.Get(sess.ID)
package session
