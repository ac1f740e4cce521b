// Package session provides session management for the concentration game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence as one JSON file per session
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager owns every live session. Each session wraps its own engine,
// built by an EngineFactory so the caller decides the clock, store, view
// and sounds an engine gets. FilePersistence stores session snapshots.
//
// Session Identifiers:
//
// Session IDs are case-insensitive and limited to lowercase letters,
// digits, '-' and '_'. An empty ID asks the manager to generate a
// 4-character one using cryptographic randomness.
//
// Persistence:
//
// With persistence configured, a session is saved when it is created,
// when it is accessed and whenever a pair resolves. A session that is not
// in memory is loaded from its snapshot on first access. A pair that was
// pending when the snapshot was taken comes back face down.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("data/sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, factory, logger)
//
//	sess, err := manager.Create("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Engine.SelectCard(3)
//
// Cleanup:
//
// CleanupExpiredSessions drops sessions idle longer than a given age,
// together with their snapshots. SyncWithPersistence drops in-memory
// sessions whose snapshot files were removed from disk.
package session
