// Package postgres implements activity storage on PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/pateepk/AgileSite-sub083/internal/domain"
)

var activityColumns = []string{
	"activity_type",
	"activity_created",
	"activity_contact_id",
	"activity_site_id",
	"activity_node_id",
	"activity_item_id",
	"activity_item_detail_id",
	"activity_value",
	"activity_title",
	"activity_url",
	"activity_url_referrer",
	"activity_culture",
	"activity_campaign",
	"activity_utm_source",
	"activity_utm_content",
	"activity_ab_variant_name",
	"activity_comment",
}

// BulkInserter writes activity batches with the COPY protocol.
type BulkInserter struct {
	pool *pgxpool.Pool
}

// NewBulkInserter constructs a BulkInserter.
func NewBulkInserter(pool *pgxpool.Pool) *BulkInserter {
	return &BulkInserter{pool: pool}
}

// BulkInsertAndGetLastIdentity copies the activities into the activities table in
// one transaction and returns the identity given to the last row.
//
// The table lock serialises concurrent bulk writers, so the identity sequence is
// consumed in one contiguous run, in slice order, for the whole batch.
func (b *BulkInserter) BulkInsertAndGetLastIdentity(ctx context.Context, activities []*domain.Activity) (int64, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	var lastID int64
	err := pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE activities IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"activities"},
			activityColumns,
			pgx.CopyFromSlice(len(activities), func(i int) ([]any, error) {
				return activityRow(activities[i]), nil
			}),
		)
		if err != nil {
			return err
		}
		if n != int64(len(activities)) {
			return errors.Errorf("only %d out of %d activities were inserted", n, len(activities))
		}

		return tx.QueryRow(ctx, `SELECT currval(pg_get_serial_sequence('activities', 'activity_id'))`).Scan(&lastID)
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return lastID, nil
}

func activityRow(a *domain.Activity) []any {
	return []any{
		a.Type,
		a.Created.UTC(),
		nullIfZero(a.ContactID),
		nullIfZero(a.SiteID),
		nullIfZero(a.NodeID),
		nullIfZero(a.ItemID),
		nullIfZero(a.ItemDetailID),
		nullIfEmpty(a.Value),
		nullIfEmpty(a.Title),
		nullIfEmpty(a.URL),
		nullIfEmpty(a.URLReferrer),
		nullIfEmpty(a.Culture),
		nullIfEmpty(a.Campaign),
		nullIfEmpty(a.UTMSource),
		nullIfEmpty(a.UTMContent),
		nullIfEmpty(a.ABVariantName),
		nullIfEmpty(a.Comment),
	}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullIfZero[T int | int64](value T) any {
	if value == 0 {
		return nil
	}
	return value
}
