package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
)

var _ repository.AuditRepository = (*AuditRepository)(nil)

// AuditRepository stores transformation records in MongoDB.
type AuditRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewAuditRepository connects and pings MongoDB before returning.
func NewAuditRepository(ctx context.Context, uri string, dbName string) (*AuditRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &AuditRepository{
		client:   client,
		dbName:   dbName,
		collName: "transformation_logs",
	}, nil
}

func (r *AuditRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// LogTransformation upserts by record ID so a failed retry replaces the earlier entry.
func (r *AuditRepository) LogTransformation(ctx context.Context, record model.TransformationRecord) error {
	_, err := r.collection().ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store transformation %s: %w", record.ID, err)
	}
	return nil
}

func (r *AuditRepository) GetTransformationHistory(ctx context.Context, filter model.HistoryFilter) ([]model.TransformationRecord, error) {
	query := bson.M{}
	if filter.ItemID != "" {
		query["$or"] = bson.A{
			bson.M{"sourceItem.id": filter.ItemID},
			bson.M{"targetItem.id": filter.ItemID},
		}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transformation history: %w", err)
	}
	defer cursor.Close(ctx)

	records := []model.TransformationRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode transformation history: %w", err)
	}
	return records, nil
}

func (r *AuditRepository) GetTransformationByID(ctx context.Context, id string) (*model.TransformationRecord, error) {
	var record model.TransformationRecord
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transformation %s: %w", id, err)
	}
	return &record, nil
}

// Close closes the MongoDB connection.
func (r *AuditRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
