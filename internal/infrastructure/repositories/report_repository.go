package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/incidentsvc/domain"
)

// ReportRepositoryImpl implements domain.ReportRepository using GORM
type ReportRepositoryImpl struct {
	db *gorm.DB
}

// DBReport represents the database model for PersistedReport (with GORM tags)
type DBReport struct {
	ID           string    `gorm:"primaryKey;size:36"`
	DisasterType string    `gorm:"index;size:32"`
	FullName     string    `gorm:"size:255"`
	Phone        string    `gorm:"index;size:32"`
	Location     string    `gorm:"size:512"`
	Description  string    `gorm:"type:text"`
	Latitude     *float64  `gorm:"default:null"`
	Longitude    *float64  `gorm:"default:null"`
	ImageURL     *string   `gorm:"size:1024"`
	Status       string    `gorm:"index;size:32"`
	Flagged      bool      `gorm:"index"`
	CreatedAt    time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBReport) TableName() string {
	return "disaster_reports"
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) domain.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Create implements domain.ReportRepository
func (r *ReportRepositoryImpl) Create(ctx context.Context, report *domain.PersistedReport) (string, error) {
	dbReport := r.domainToDB(report)
	dbReport.ID = uuid.NewString()
	if dbReport.CreatedAt.IsZero() {
		dbReport.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(dbReport).Error; err != nil {
		return "", err
	}
	return dbReport.ID, nil
}

// FindByID implements domain.ReportRepository
func (r *ReportRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.PersistedReport, error) {
	var dbReport DBReport
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbReport).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbReport), nil
}

// List implements domain.ReportRepository
func (r *ReportRepositoryImpl) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.PersistedReport, error) {
	query := r.db.WithContext(ctx).Model(&DBReport{}).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Flagged != nil {
		query = query.Where("flagged = ?", *filter.Flagged)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []DBReport
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	reports := make([]*domain.PersistedReport, len(rows))
	for i := range rows {
		reports[i] = r.dbToDomain(&rows[i])
	}
	return reports, nil
}

// UpdateStatus implements domain.ReportRepository
func (r *ReportRepositoryImpl) UpdateStatus(ctx context.Context, id, status string) error {
	return r.updateColumn(ctx, id, "status", status)
}

// SetFlagged implements domain.ReportRepository
func (r *ReportRepositoryImpl) SetFlagged(ctx context.Context, id string, flagged bool) error {
	return r.updateColumn(ctx, id, "flagged", flagged)
}

// Delete implements domain.ReportRepository
func (r *ReportRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DBReport{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepositoryImpl) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&DBReport{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// domainToDB converts domain report to database report
func (r *ReportRepositoryImpl) domainToDB(report *domain.PersistedReport) *DBReport {
	dbReport := &DBReport{
		ID:           report.ID,
		DisasterType: string(report.DisasterType),
		FullName:     report.FullName,
		Phone:        report.Phone,
		Location:     report.Location,
		Description:  report.Description,
		ImageURL:     report.ImageURL,
		Status:       report.Status,
		Flagged:      report.Flagged,
		CreatedAt:    report.CreatedAt,
	}
	if report.Coordinates != nil {
		lat, lng := report.Coordinates.Latitude, report.Coordinates.Longitude
		dbReport.Latitude = &lat
		dbReport.Longitude = &lng
	}
	return dbReport
}

// dbToDomain converts database report to domain report
func (r *ReportRepositoryImpl) dbToDomain(dbReport *DBReport) *domain.PersistedReport {
	report := &domain.PersistedReport{
		ID:           dbReport.ID,
		DisasterType: domain.DisasterType(dbReport.DisasterType),
		FullName:     dbReport.FullName,
		Phone:        dbReport.Phone,
		Location:     dbReport.Location,
		Description:  dbReport.Description,
		ImageURL:     dbReport.ImageURL,
		Status:       dbReport.Status,
		Flagged:      dbReport.Flagged,
		CreatedAt:    dbReport.CreatedAt,
	}
	if dbReport.Latitude != nil && dbReport.Longitude != nil {
		report.Coordinates = &domain.Coordinates{Latitude: *dbReport.Latitude, Longitude: *dbReport.Longitude}
	}
	return report
}
