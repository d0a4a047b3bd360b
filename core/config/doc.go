// Package config loads the application configuration.
//
// Values come from a .env file (godotenv) and the process environment, bound
// through Viper. Defaults are read from the `default` struct tags of every section by
// reflection, and environment keys follow SECTION_KEY (e.g. RECONCILE_CHUNK_SIZE).
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, body limit and timeouts
//   - Database: driver (mysql, sqlite) and connection details
//   - Storage: MinIO/S3 report archive
//   - Log: level and format
//   - Lock: keyed lock driver (local, redis)
//   - Reconcile: sweep chunk size, workers and rematch schedule
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
