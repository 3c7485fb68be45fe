package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/you/incidentsvc/domain"
)

// ReportRepository stores disaster reports in a MongoDB collection
type ReportRepository struct {
	reports *mongo.Collection
}

// NewReportRepository binds the repository to collection in db
func NewReportRepository(db *mongo.Database, collection string) *ReportRepository {
	return &ReportRepository{reports: db.Collection(collection)}
}

// EnsureIndexes creates the listing indexes used by the public feed and the admin filters
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create report indexes: %w", err)
	}
	return nil
}

// Create inserts the report in a single write and returns the generated id
func (r *ReportRepository) Create(ctx context.Context, report *domain.PersistedReport) (string, error) {
	if report == nil {
		return "", errors.New("report payload is nil")
	}
	doc := reportToDocument(report)
	doc.ID = primitive.NewObjectID()
	if _, err := r.reports.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	report.ID = doc.ID.Hex()
	return report.ID, nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*domain.PersistedReport, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrReportNotFound
	}
	var doc ReportDocument
	if err := r.reports.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return documentToReport(doc), nil
}

// List returns reports newest first
func (r *ReportRepository) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.PersistedReport, error) {
	mongoFilter := bson.M{}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}
	if filter.Flagged != nil {
		mongoFilter["flagged"] = *filter.Flagged
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		findOpts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.reports.Find(ctx, mongoFilter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := make([]*domain.PersistedReport, 0)
	for cursor.Next(ctx) {
		var doc ReportDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, documentToReport(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *ReportRepository) SetFlagged(ctx context.Context, id string, flagged bool) error {
	return r.set(ctx, id, bson.M{"flagged": flagged})
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrReportNotFound
	}
	res, err := r.reports.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) set(ctx context.Context, id string, fields bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrReportNotFound
	}
	res, err := r.reports.UpdateByID(ctx, objectID, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

var _ domain.ReportRepository = (*ReportRepository)(nil)
