// Package config provides process settings for the concentration game server.
//
// Settings are read from the environment with github.com/caarlos0/env/v11.
// The server loads a .env file first, so the same keys may live there:
//
//	HOST, PORT                  HTTP listen address
//	DATA_DIR                    root for persisted data
//	SESSIONS_DIR                session snapshots (default DATA_DIR/sessions)
//	STATIC_DIR                  browser assets served at /
//	STORE_DRIVER                best score store: memory, file, sqlite, redis
//	STORE_DSN                   driver target, derived from DATA_DIR when empty
//	REDIS_ADDR                  redis host:port or redis:// URL
//	SESSION_TTL                 idle time before a session expires
//	DEBUG                       development logging
//	NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN
//
// Usage:
//
//	settings, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := settings.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	bestScores, err := store.Open(ctx, settings.StoreDriver, settings.StoreTarget())
package config
