package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/models"
)

type DataBase struct {
	*gorm.DB

	loc *time.Location
	now func() time.Time
}

const connectAttempts = 5

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, errors.Errorf("unknown database driver %q", driver)
	}
}

func OpenDataBase(logger *zap.Logger, conf *config.Config) (*DataBase, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}
	dial, err := dialector(conf.DataBase.Driver, conf.DataBase.DSN)
	if err != nil {
		return nil, err
	}

	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()

	var db *gorm.DB
	connect := func() error {
		db, err = gorm.Open(dial, &gorm.Config{
			Logger: zapLogger,
		})
		if err != nil {
			logger.Warn("Failed to connect to database", zap.String("driver", conf.DataBase.Driver), zap.Error(err))
		}
		return err
	}
	err = backoff.Retry(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open database")
	}

	return newDataBase(db, loc)
}

func newDataBase(db *gorm.DB, loc *time.Location) (*DataBase, error) {
	err := db.AutoMigrate(&models.Feedback{})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to migrate feedbacks")
	}
	return &DataBase{DB: db, loc: loc, now: time.Now}, nil
}

// Location is the zone created_at values are recorded in.
func (db *DataBase) Location() *time.Location {
	return db.loc
}

// AddFeedback inserts a new record and stamps it with the current time.
// There is no idempotency key: inserting the same essay twice yields two rows.
func (db *DataBase) AddFeedback(ctx context.Context, feedback *models.Feedback) error {
	feedback.ID = 0
	feedback.CreatedAt = db.now().In(db.loc)
	return db.WithContext(ctx).Create(feedback).Error
}

func (db *DataBase) ListUserFeedback(ctx context.Context, username string) (feedbacks []models.Feedback, err error) {
	feedbacks = make([]models.Feedback, 0)
	err = db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at").
		Order("id").
		Find(&feedbacks).Error
	if err != nil {
		feedbacks = nil
	}
	return
}

func (db *DataBase) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
