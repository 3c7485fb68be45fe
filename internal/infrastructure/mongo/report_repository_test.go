package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/you/incidentsvc/domain"
)

const testCollection = "disasterReports"

func namespace(mt *mtest.T) string {
	return mt.DB.Name() + "." + testCollection
}

func reportDoc(id primitive.ObjectID, status string, createdAt time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "disasterType", Value: "Flood"},
		{Key: "fullName", Value: "Asha Rao"},
		{Key: "phone", Value: "+919876543210"},
		{Key: "location", Value: "Andheri, Mumbai, Maharashtra"},
		{Key: "description", Value: "water rising"},
		{Key: "coordinates", Value: bson.D{{Key: "lat", Value: 19.07}, {Key: "lng", Value: 72.87}}},
		{Key: "status", Value: status},
		{Key: "flagged", Value: false},
		{Key: "createdAt", Value: createdAt},
	}
}

func TestReportRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		report := &domain.PersistedReport{
			DisasterType: domain.DisasterFlood,
			FullName:     "Asha Rao",
			Phone:        "+919876543210",
			Location:     "Andheri, Mumbai, Maharashtra",
			Status:       domain.StatusPending,
			CreatedAt:    time.Now(),
		}
		id, err := repo.Create(context.Background(), report)
		require.NoError(t, err)
		assert.Len(t, id, 24)
		assert.Equal(t, id, report.ID)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "insert", started.CommandName)
	})

	mt.Run("write error", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		_, err := repo.Create(context.Background(), &domain.PersistedReport{Status: domain.StatusPending})
		assert.Error(t, err)
	})
}

func TestReportRepository_FindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	createdAt := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

	mt.Run("found", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, reportDoc(id, "pending", createdAt)))

		got, err := repo.FindByID(context.Background(), id.Hex())
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), got.ID)
		assert.Equal(t, domain.DisasterFlood, got.DisasterType)
		require.NotNil(t, got.Coordinates)
		assert.Equal(t, 19.07, got.Coordinates.Latitude)
		assert.Nil(t, got.ImageURL)
		assert.True(t, createdAt.Equal(got.CreatedAt))
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)

		_, err := repo.FindByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})
}

func TestReportRepository_List(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	newer := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	mt.Run("filters and sorts", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		first := mtest.CreateCursorResponse(1, namespace(mt), mtest.FirstBatch,
			reportDoc(primitive.NewObjectID(), "resolved", newer),
			reportDoc(primitive.NewObjectID(), "resolved", older))
		killCursors := mtest.CreateCursorResponse(0, namespace(mt), mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		flagged := false
		got, err := repo.List(context.Background(), domain.ReportFilter{Status: "resolved", Flagged: &flagged, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "find", started.CommandName)
		filter := started.Command.Lookup("filter").Document()
		assert.Equal(t, "resolved", filter.Lookup("status").StringValue())
		assert.False(t, filter.Lookup("flagged").Boolean())
		assert.EqualValues(t, 10, started.Command.Lookup("limit").AsInt64())
		assert.EqualValues(t, -1, started.Command.Lookup("sort").Document().Lookup("createdAt").AsInt64())
	})

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		got, err := repo.List(context.Background(), domain.ReportFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestReportRepository_Mutations(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	tests := []struct {
		name          string
		response      bson.D
		mutate        func(*ReportRepository, string) error
		expectedError error
	}{
		{
			name:     "update status",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mutate: func(r *ReportRepository, id string) error {
				return r.UpdateStatus(context.Background(), id, domain.StatusResolved)
			},
		},
		{
			name:     "update status on missing report",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mutate: func(r *ReportRepository, id string) error {
				return r.UpdateStatus(context.Background(), id, domain.StatusResolved)
			},
			expectedError: domain.ErrReportNotFound,
		},
		{
			name:     "set flagged",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mutate: func(r *ReportRepository, id string) error {
				return r.SetFlagged(context.Background(), id, true)
			},
		},
		{
			name:     "delete",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mutate: func(r *ReportRepository, id string) error {
				return r.Delete(context.Background(), id)
			},
		},
		{
			name:     "delete missing report",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mutate: func(r *ReportRepository, id string) error {
				return r.Delete(context.Background(), id)
			},
			expectedError: domain.ErrReportNotFound,
		},
	}

	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			repo := NewReportRepository(mt.DB, testCollection)
			mt.AddMockResponses(tt.response)

			err := tt.mutate(repo, primitive.NewObjectID().Hex())

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReportRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates indexes", func(mt *mtest.T) {
		repo := NewReportRepository(mt.DB, testCollection)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, repo.EnsureIndexes(context.Background()))
		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "createIndexes", started.CommandName)
	})
}

func TestContentTypeOf(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"contentType": "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentTypeOf(raw))

	empty, err := bson.Marshal(bson.M{"other": 1})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", contentTypeOf(empty))
	assert.Equal(t, "application/octet-stream", contentTypeOf(nil))
}

func TestMediaURL(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, "http://api.test/media/"+id.Hex(), mediaURL("http://api.test", id))
}
