// Package store provides the persistent key/value store holding the best
// score.
//
// Four drivers are available through Open:
//   - memory: process memory, lost on exit
//   - file: a single JSON document on disk
//   - sqlite: a kv table in a SQLite database (github.com/mattn/go-sqlite3)
//   - redis: plain string keys under KeyPrefix (github.com/redis/go-redis/v9)
//
// Usage:
//
//	bestScores, err := store.Open(ctx, store.DriverSQLite, "data/concentration.db")
//	if err != nil {
//		return err
//	}
//	defer bestScores.Close()
//
//	engine.NewEngine(engine.Options{Store: bestScores})
package store
