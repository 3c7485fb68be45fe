package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/you/incidentsvc/domain"
)

// ReportDocument is the stored shape of a disaster report
type ReportDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	DisasterType string               `bson:"disasterType"`
	FullName     string               `bson:"fullName"`
	Phone        string               `bson:"phone"`
	Location     string               `bson:"location"`
	Description  string               `bson:"description"`
	Coordinates  *CoordinatesDocument `bson:"coordinates,omitempty"`
	ImageURL     *string              `bson:"imageUrl,omitempty"`
	Status       string               `bson:"status"`
	Flagged      bool                 `bson:"flagged"`
	CreatedAt    time.Time            `bson:"createdAt"`
}

type CoordinatesDocument struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

func reportToDocument(r *domain.PersistedReport) ReportDocument {
	doc := ReportDocument{
		DisasterType: string(r.DisasterType),
		FullName:     r.FullName,
		Phone:        r.Phone,
		Location:     r.Location,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Status:       r.Status,
		Flagged:      r.Flagged,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.Coordinates != nil {
		doc.Coordinates = &CoordinatesDocument{Lat: r.Coordinates.Latitude, Lng: r.Coordinates.Longitude}
	}
	return doc
}

func documentToReport(doc ReportDocument) *domain.PersistedReport {
	r := &domain.PersistedReport{
		ID:           doc.ID.Hex(),
		DisasterType: domain.DisasterType(doc.DisasterType),
		FullName:     doc.FullName,
		Phone:        doc.Phone,
		Location:     doc.Location,
		Description:  doc.Description,
		ImageURL:     doc.ImageURL,
		Status:       doc.Status,
		Flagged:      doc.Flagged,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
	if doc.Coordinates != nil {
		r.Coordinates = &domain.Coordinates{Latitude: doc.Coordinates.Lat, Longitude: doc.Coordinates.Lng}
	}
	return r
}
