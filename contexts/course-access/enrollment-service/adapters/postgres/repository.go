package postgresadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	"lyceum/contexts/course-access/enrollment-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Models lists every table this adapter owns, for migration at startup.
func Models() []any {
	return []any{
		&courseModel{},
		&enrollmentModel{},
		&paymentSlipModel{},
		&revenueModel{},
		&notificationModel{},
	}
}

func (r *Repository) GetCourse(ctx context.Context, courseID string) (entities.Course, error) {
	var row courseModel
	err := r.db.WithContext(ctx).
		Where("course_id = ?", strings.TrimSpace(courseID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Course{}, domainerrors.ErrCourseNotFound
		}
		return entities.Course{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetEnrollment(ctx context.Context, enrollmentID string) (entities.Enrollment, error) {
	var row enrollmentModel
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", strings.TrimSpace(enrollmentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Enrollment{}, domainerrors.ErrEnrollmentNotFound
		}
		return entities.Enrollment{}, err
	}
	return row.toEntity()
}

func (r *Repository) FindEnrollment(ctx context.Context, studentID, courseID string) (entities.Enrollment, bool, error) {
	var row enrollmentModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", strings.TrimSpace(studentID), strings.TrimSpace(courseID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Enrollment{}, false, nil
		}
		return entities.Enrollment{}, false, err
	}
	enrollment, err := row.toEntity()
	if err != nil {
		return entities.Enrollment{}, false, err
	}
	return enrollment, true, nil
}

func (r *Repository) CreateEnrollment(ctx context.Context, enrollment entities.Enrollment) error {
	row, err := enrollmentModelFromEntity(enrollment)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrEnrollmentExists
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateEnrollment(ctx context.Context, enrollment entities.Enrollment) error {
	row, err := enrollmentModelFromEntity(enrollment)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&enrollmentModel{}).
		Where("enrollment_id = ?", row.EnrollmentID).
		Updates(enrollmentUpdates(row))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEnrollmentNotFound
	}
	return nil
}

func (r *Repository) DeleteEnrollment(ctx context.Context, enrollmentID string) error {
	result := r.db.WithContext(ctx).
		Where("enrollment_id = ?", strings.TrimSpace(enrollmentID)).
		Delete(&enrollmentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEnrollmentNotFound
	}
	return nil
}

func (r *Repository) ListEnrollmentsBySlip(ctx context.Context, slipID string) ([]entities.Enrollment, error) {
	var rows []enrollmentModel
	if err := r.db.WithContext(ctx).
		Where("payment_slip_id = ?", strings.TrimSpace(slipID)).
		Order("enrollment_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return enrollmentsFromRows(rows)
}

func (r *Repository) ListExpiredGranted(ctx context.Context, now time.Time, afterID string, limit int) ([]entities.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []enrollmentModel
	if err := r.db.WithContext(ctx).
		Where("access_granted = TRUE AND expires_at <= ? AND enrollment_id > ?", now.UTC(), afterID).
		Order("enrollment_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return enrollmentsFromRows(rows)
}

// RevokeAccess flips the cached flag off. The access_granted guard makes a
// re-run over an already-swept record a no-op.
func (r *Repository) RevokeAccess(ctx context.Context, enrollmentID string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&enrollmentModel{}).
		Where("enrollment_id = ? AND access_granted = TRUE", strings.TrimSpace(enrollmentID)).
		Updates(map[string]any{
			"access_granted": false,
			"updated_at":     now.UTC(),
		}).
		Error
}

func (r *Repository) ListExpiringSoon(ctx context.Context, now time.Time, window time.Duration, afterID string, limit int) ([]entities.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	deadline := now.UTC().Add(window)
	var rows []enrollmentModel
	if err := r.db.WithContext(ctx).
		Where("access_granted = TRUE AND expires_at > ? AND expires_at <= ? AND enrollment_id > ?", now.UTC(), deadline, afterID).
		Order("enrollment_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return enrollmentsFromRows(rows)
}

func (r *Repository) GetSlip(ctx context.Context, slipID string) (entities.PaymentSlip, error) {
	var row paymentSlipModel
	err := r.db.WithContext(ctx).
		Where("slip_id = ?", strings.TrimSpace(slipID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PaymentSlip{}, domainerrors.ErrSlipNotFound
		}
		return entities.PaymentSlip{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateSlip(ctx context.Context, slip entities.PaymentSlip) error {
	row := slipModelFromEntity(slip)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrSlipNotPending
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateSlip(ctx context.Context, slip entities.PaymentSlip) error {
	row := slipModelFromEntity(slip)
	result := r.db.WithContext(ctx).
		Model(&paymentSlipModel{}).
		Where("slip_id = ?", row.SlipID).
		Updates(slipUpdates(row))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSlipNotFound
	}
	return nil
}

func (r *Repository) DeleteSlip(ctx context.Context, slipID string) error {
	result := r.db.WithContext(ctx).
		Where("slip_id = ?", strings.TrimSpace(slipID)).
		Delete(&paymentSlipModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSlipNotFound
	}
	return nil
}

func (r *Repository) AppendNotification(ctx context.Context, record entities.NotificationRecord) error {
	row := notificationModelFromEntity(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "notification_id"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) HasNotification(ctx context.Context, enrollmentID, kind string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("enrollment_id = ? AND kind = ?", strings.TrimSpace(enrollmentID), strings.TrimSpace(kind)).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListRevenueBySlip(ctx context.Context, slipID string) ([]entities.RevenueRecord, error) {
	var rows []revenueModel
	if err := r.db.WithContext(ctx).
		Where("slip_id = ?", strings.TrimSpace(slipID)).
		Order("recorded_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.RevenueRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ApplyApproval commits the whole approval write set in one serializable
// transaction. The guarded slip update is the linearization point: a slip
// already approved or rejected leaves zero rows affected and the transaction
// rolls back with ErrSlipNotPending. A unique revenue row per slip backstops
// double-approval even across replicas.
func (r *Repository) ApplyApproval(ctx context.Context, effects ports.ApprovalEffects) error {
	if err := effects.Validate(); err != nil {
		return err
	}

	slipRow := slipModelFromEntity(effects.Slip)
	enrollmentRow, err := enrollmentModelFromEntity(effects.Enrollment)
	if err != nil {
		return err
	}
	revenueRow := revenueModelFromEntity(effects.Revenue)
	notificationRow := notificationModelFromEntity(effects.Notification)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slipResult := tx.Model(&paymentSlipModel{}).
			Where("slip_id = ? AND status = ?", slipRow.SlipID, string(entities.SlipPending)).
			Updates(slipUpdates(slipRow))
		if slipResult.Error != nil {
			return slipResult.Error
		}
		if slipResult.RowsAffected == 0 {
			var current paymentSlipModel
			if err := tx.Select("status").Where("slip_id = ?", slipRow.SlipID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainerrors.ErrSlipNotFound
				}
				return err
			}
			return domainerrors.ErrSlipNotPending
		}

		if effects.EnrollmentIsNew {
			if err := tx.Create(&enrollmentRow).Error; err != nil {
				return err
			}
		} else {
			enrollmentResult := tx.Model(&enrollmentModel{}).
				Where("enrollment_id = ?", enrollmentRow.EnrollmentID).
				Updates(enrollmentUpdates(enrollmentRow))
			if enrollmentResult.Error != nil {
				return enrollmentResult.Error
			}
			if enrollmentResult.RowsAffected == 0 {
				return domainerrors.ErrEnrollmentNotFound
			}
		}

		if err := tx.Create(&revenueRow).Error; err != nil {
			return err
		}
		return tx.Create(&notificationRow).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		if isSerializationFailure(err) || isUniqueViolation(err) {
			return domainerrors.ErrApprovalConflict
		}
		return err
	}
	return nil
}

type courseModel struct {
	CourseID   string `gorm:"column:course_id;primaryKey"`
	OwnerID    string `gorm:"column:owner_id"`
	Title      string `gorm:"column:title"`
	PriceCents int64  `gorm:"column:price_cents"`
	Published  bool   `gorm:"column:published"`
}

func (courseModel) TableName() string {
	return "courses"
}

func (m courseModel) toEntity() entities.Course {
	return entities.Course{
		CourseID:   m.CourseID,
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		PriceCents: m.PriceCents,
		Published:  m.Published,
	}
}

type enrollmentModel struct {
	EnrollmentID     string    `gorm:"column:enrollment_id;primaryKey"`
	CourseID         string    `gorm:"column:course_id;uniqueIndex:idx_enrollments_student_course,priority:2"`
	StudentID        string    `gorm:"column:student_id;uniqueIndex:idx_enrollments_student_course,priority:1"`
	OwnerID          string    `gorm:"column:owner_id"`
	StartDate        time.Time `gorm:"column:start_date"`
	ExpiresAt        time.Time `gorm:"column:expires_at;index:idx_enrollments_expiry"`
	SelectedDuration int       `gorm:"column:selected_duration"`
	Status           string    `gorm:"column:status"`
	AccessGranted    bool      `gorm:"column:access_granted;index:idx_enrollments_expiry"`
	PaymentSlipID    string    `gorm:"column:payment_slip_id;index"`
	PricePaidCents   int64     `gorm:"column:price_paid_cents"`
	Progress         []byte    `gorm:"column:progress;type:jsonb"`
	OverallProgress  float64   `gorm:"column:overall_progress"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (enrollmentModel) TableName() string {
	return "enrollments"
}

func enrollmentModelFromEntity(item entities.Enrollment) (enrollmentModel, error) {
	progress, err := json.Marshal(item.Progress)
	if err != nil {
		return enrollmentModel{}, err
	}
	return enrollmentModel{
		EnrollmentID:     strings.TrimSpace(item.EnrollmentID),
		CourseID:         strings.TrimSpace(item.CourseID),
		StudentID:        strings.TrimSpace(item.StudentID),
		OwnerID:          strings.TrimSpace(item.OwnerID),
		StartDate:        item.StartDate.UTC(),
		ExpiresAt:        item.ExpiresAt.UTC(),
		SelectedDuration: item.SelectedDuration,
		Status:           string(item.Status),
		AccessGranted:    item.AccessGranted,
		PaymentSlipID:    strings.TrimSpace(item.PaymentSlipID),
		PricePaidCents:   item.PricePaidCents,
		Progress:         progress,
		OverallProgress:  item.OverallProgress,
		CreatedAt:        item.CreatedAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
	}, nil
}

func enrollmentUpdates(row enrollmentModel) map[string]any {
	return map[string]any{
		"course_id":         row.CourseID,
		"student_id":        row.StudentID,
		"owner_id":          row.OwnerID,
		"start_date":        row.StartDate,
		"expires_at":        row.ExpiresAt,
		"selected_duration": row.SelectedDuration,
		"status":            row.Status,
		"access_granted":    row.AccessGranted,
		"payment_slip_id":   row.PaymentSlipID,
		"price_paid_cents":  row.PricePaidCents,
		"progress":          row.Progress,
		"overall_progress":  row.OverallProgress,
		"updated_at":        row.UpdatedAt,
	}
}

func (m enrollmentModel) toEntity() (entities.Enrollment, error) {
	var progress []entities.LessonProgress
	if len(m.Progress) > 0 {
		if err := json.Unmarshal(m.Progress, &progress); err != nil {
			return entities.Enrollment{}, err
		}
	}
	return entities.Enrollment{
		EnrollmentID:     m.EnrollmentID,
		CourseID:         m.CourseID,
		StudentID:        m.StudentID,
		OwnerID:          m.OwnerID,
		StartDate:        m.StartDate.UTC(),
		ExpiresAt:        m.ExpiresAt.UTC(),
		SelectedDuration: m.SelectedDuration,
		Status:           entities.EnrollmentStatus(m.Status),
		AccessGranted:    m.AccessGranted,
		PaymentSlipID:    m.PaymentSlipID,
		PricePaidCents:   m.PricePaidCents,
		Progress:         progress,
		OverallProgress:  m.OverallProgress,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}, nil
}

func enrollmentsFromRows(rows []enrollmentModel) ([]entities.Enrollment, error) {
	items := make([]entities.Enrollment, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type paymentSlipModel struct {
	SlipID           string     `gorm:"column:slip_id;primaryKey"`
	StudentID        string     `gorm:"column:student_id;index"`
	CourseID         string     `gorm:"column:course_id"`
	OwnerID          string     `gorm:"column:owner_id"`
	AmountCents      int64      `gorm:"column:amount_cents"`
	SelectedDuration int        `gorm:"column:selected_duration"`
	SlipImageURL     string     `gorm:"column:slip_image_url"`
	Status           string     `gorm:"column:status;index"`
	RejectionReason  string     `gorm:"column:rejection_reason"`
	ReviewedAt       *time.Time `gorm:"column:reviewed_at"`
	ReviewedBy       string     `gorm:"column:reviewed_by"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (paymentSlipModel) TableName() string {
	return "payment_slips"
}

func slipModelFromEntity(item entities.PaymentSlip) paymentSlipModel {
	return paymentSlipModel{
		SlipID:           strings.TrimSpace(item.SlipID),
		StudentID:        strings.TrimSpace(item.StudentID),
		CourseID:         strings.TrimSpace(item.CourseID),
		OwnerID:          strings.TrimSpace(item.OwnerID),
		AmountCents:      item.AmountCents,
		SelectedDuration: item.SelectedDuration,
		SlipImageURL:     strings.TrimSpace(item.SlipImageURL),
		Status:           string(item.Status),
		RejectionReason:  strings.TrimSpace(item.RejectionReason),
		ReviewedAt:       normalizeOptionalTime(item.ReviewedAt),
		ReviewedBy:       strings.TrimSpace(item.ReviewedBy),
		CreatedAt:        item.CreatedAt.UTC(),
	}
}

func slipUpdates(row paymentSlipModel) map[string]any {
	return map[string]any{
		"status":           row.Status,
		"rejection_reason": row.RejectionReason,
		"reviewed_at":      row.ReviewedAt,
		"reviewed_by":      row.ReviewedBy,
	}
}

func (m paymentSlipModel) toEntity() entities.PaymentSlip {
	return entities.PaymentSlip{
		SlipID:           m.SlipID,
		StudentID:        m.StudentID,
		CourseID:         m.CourseID,
		OwnerID:          m.OwnerID,
		AmountCents:      m.AmountCents,
		SelectedDuration: m.SelectedDuration,
		SlipImageURL:     m.SlipImageURL,
		Status:           entities.SlipStatus(m.Status),
		RejectionReason:  m.RejectionReason,
		ReviewedAt:       normalizeOptionalTime(m.ReviewedAt),
		ReviewedBy:       m.ReviewedBy,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

type revenueModel struct {
	RevenueID    string    `gorm:"column:revenue_id;primaryKey"`
	SlipID       string    `gorm:"column:slip_id;uniqueIndex:idx_revenue_slip"`
	EnrollmentID string    `gorm:"column:enrollment_id"`
	CourseID     string    `gorm:"column:course_id"`
	OwnerID      string    `gorm:"column:owner_id;index"`
	AmountCents  int64     `gorm:"column:amount_cents"`
	RecordedAt   time.Time `gorm:"column:recorded_at"`
}

func (revenueModel) TableName() string {
	return "revenue_records"
}

func revenueModelFromEntity(item entities.RevenueRecord) revenueModel {
	return revenueModel{
		RevenueID:    strings.TrimSpace(item.RevenueID),
		SlipID:       strings.TrimSpace(item.SlipID),
		EnrollmentID: strings.TrimSpace(item.EnrollmentID),
		CourseID:     strings.TrimSpace(item.CourseID),
		OwnerID:      strings.TrimSpace(item.OwnerID),
		AmountCents:  item.AmountCents,
		RecordedAt:   item.RecordedAt.UTC(),
	}
}

func (m revenueModel) toEntity() entities.RevenueRecord {
	return entities.RevenueRecord{
		RevenueID:    m.RevenueID,
		SlipID:       m.SlipID,
		EnrollmentID: m.EnrollmentID,
		CourseID:     m.CourseID,
		OwnerID:      m.OwnerID,
		AmountCents:  m.AmountCents,
		RecordedAt:   m.RecordedAt.UTC(),
	}
}

type notificationModel struct {
	NotificationID string    `gorm:"column:notification_id;primaryKey"`
	StudentID      string    `gorm:"column:student_id;index"`
	EnrollmentID   string    `gorm:"column:enrollment_id;index:idx_notifications_enrollment_kind,priority:1"`
	SlipID         string    `gorm:"column:slip_id"`
	Kind           string    `gorm:"column:kind;index:idx_notifications_enrollment_kind,priority:2"`
	Message        string    `gorm:"column:message"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string {
	return "notifications"
}

func notificationModelFromEntity(item entities.NotificationRecord) notificationModel {
	return notificationModel{
		NotificationID: strings.TrimSpace(item.NotificationID),
		StudentID:      strings.TrimSpace(item.StudentID),
		EnrollmentID:   strings.TrimSpace(item.EnrollmentID),
		SlipID:         strings.TrimSpace(item.SlipID),
		Kind:           strings.TrimSpace(item.Kind),
		Message:        item.Message,
		CreatedAt:      item.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
