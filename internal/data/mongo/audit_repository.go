package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charterdesk/recon-engine/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the match audit collection in MongoDB
	AuditCollectionName = "match_audits"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB match audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one audit row. Rows are never updated or deleted afterwards.
func (r *AuditRepository) Append(ctx context.Context, row *audit.MatchAudit) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, row)
	if err != nil {
		r.logger.Error("Failed to append match audit",
			"run_id", row.RunID.String(),
			"error", err)
		return fmt.Errorf("failed to append match audit: %w", err)
	}

	return nil
}

// List retrieves paginated audit rows matching the filter.
// Results are sorted by creation time in descending order (newest first).
func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*audit.MatchAudit, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))

	cursor, err := collection.Find(ctx, listQuery(filter), opts)
	if err != nil {
		r.logger.Error("Failed to list match audits", "error", err)
		return nil, fmt.Errorf("failed to list match audits: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*audit.MatchAudit
	if err := cursor.All(ctx, &rows); err != nil {
		r.logger.Error("Failed to decode match audits", "error", err)
		return nil, fmt.Errorf("failed to decode match audits: %w", err)
	}

	return rows, nil
}

// listQuery translates the filter into a Mongo query; zero-value fields are
// not applied
func listQuery(filter audit.Filter) bson.M {
	query := bson.M{}
	if filter.RunID != uuid.Nil {
		query["run_id"] = filter.RunID
	}
	if filter.PaymentID != uuid.Nil {
		query["payment_id"] = filter.PaymentID
	}
	if filter.LedgerEntryID != uuid.Nil {
		query["ledger_entry_id"] = filter.LedgerEntryID
	}
	if filter.CharterRef != "" {
		query["charter_ref"] = filter.CharterRef
	}
	return query
}

// CountByRunID counts the audit rows written by one engine run
func (r *AuditRepository) CountByRunID(ctx context.Context, runID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"run_id": runID})
	if err != nil {
		r.logger.Error("Failed to count match audits",
			"run_id", runID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count match audits: %w", err)
	}

	return count, nil
}
