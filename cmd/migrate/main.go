package main

import (
	"round_dao/internal/config" // Custom import path (Config)
	"round_dao/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.MySQLDSN())
}
