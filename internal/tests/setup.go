package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// TruncateTables empties every application table for a clean test state
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE messages, chats, verification_tokens, sessions, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
