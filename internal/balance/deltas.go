package balance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tallyapp/tally/internal/ledger"
)

// LockGroup serializes ledger writers per group. The advisory lock is held
// for the rest of the transaction, so every balance mutation for a group
// happens one writer at a time while readers stay unblocked.
func LockGroup(ctx context.Context, tx *sql.Tx, groupID int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, groupID); err != nil {
		return fmt.Errorf("failed to lock group %d: %w", groupID, err)
	}
	return nil
}

// ApplyDeltas adds the given net changes to the materialized balances table
// inside the caller's transaction. Must run under LockGroup so the cache and
// the ledger rows commit atomically as one writer.
func ApplyDeltas(ctx context.Context, tx *sql.Tx, groupID int64, deltas ledger.Balances) error {
	const query = `
		INSERT INTO balances (group_id, user_id, net)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET net = balances.net + EXCLUDED.net, updated_at = NOW()
	`

	for userID, delta := range deltas {
		if delta == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, groupID, userID, delta); err != nil {
			return fmt.Errorf("failed to apply balance delta for user %d: %w", userID, err)
		}
	}
	return nil
}
