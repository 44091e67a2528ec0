// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── audit/           # Audit event persistence
//	└── users/           # User store (username uniqueness, lookups)
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./session-auth.db")
//	usersRepo := users.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
// The connection pool is also handed to the session store, so sessions live
// in the same SQLite file as users.
package database
