// Package config provides configuration management for the sync service.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: operator HTTP port and API key
//   - Log: logging level and format
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Waypoint: upstream base URLs, project ID, request timeout
//   - Credentials: token supplier (static or database)
//   - Sync: page size, retry budgets, cooldowns, rate limit profiles
//   - Reconcile: probe batch size and pacing
//   - UGC: skip list sources, report archive, schedules
//
// Environment variables map to nested keys with underscores, e.g.
// SYNC_PAGE_SIZE sets sync.page_size. LoadConfig runs Validate before
// returning, so unknown drivers or a zero page size fail at startup.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.PageSize)
package config
