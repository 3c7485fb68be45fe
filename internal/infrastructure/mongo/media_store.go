package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/you/incidentsvc/domain"
)

// MediaStore keeps report images in a GridFS bucket; they are served back by id
type MediaStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewMediaStore opens bucketName in db. URLs are built as baseURL/media/<id>.
func NewMediaStore(db *mongo.Database, bucketName, baseURL string) (*MediaStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &MediaStore{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Store uploads data and returns the media URL
func (s *MediaStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	id, err := s.bucket.UploadFromStream(name, bytes.NewReader(data), opts)
	if err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return mediaURL(s.baseURL, id), nil
}

// Open streams the stored file. The caller must close the reader.
func (s *MediaStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, "", domain.ErrMediaNotFound
	}
	stream, err := s.bucket.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", domain.ErrMediaNotFound
		}
		return nil, "", fmt.Errorf("gridfs download: %w", err)
	}
	return stream, contentTypeOf(stream.GetFile().Metadata), nil
}

func mediaURL(baseURL string, id primitive.ObjectID) string {
	return baseURL + "/media/" + id.Hex()
}

func contentTypeOf(metadata bson.Raw) string {
	if len(metadata) > 0 {
		if ct, ok := metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

var (
	_ domain.ObjectStorage = (*MediaStore)(nil)
	_ domain.MediaReader   = (*MediaStore)(nil)
)
