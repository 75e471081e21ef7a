package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"siapguru/domain"
	"siapguru/services/attendance/repository"
)

var db *gorm.DB

// GetDatabaseURL builds the database connection string.
func GetDatabaseURL() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"), os.Getenv("DB_DATABASE"), getEnv("DB_SSLMODE", "disable"))
	return dsn
}

// BootDB initializes the database connection and runs migrations.
func BootDB() (*gorm.DB, error) {
	url := GetDatabaseURL()
	var err error

	db, err = gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.New(GetLogrusInstance(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		return db, err
	}

	GetLogrusInstance().Info("DB initialized")
	return db, nil
}

// BootPool opens the pgx pool the change listener holds its LISTEN
// connection on.
func BootPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open listener pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.AttendanceRecord{},
		&repository.TeacherRow{},
		&repository.TimetableRow{},
		&repository.SettingsRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	if err := db.Exec(`CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify(TG_TABLE_NAME || '_changes', TG_OP);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`).Error; err != nil {
		return fmt.Errorf("failed to create notify function: %w", err)
	}

	// Statement level triggers, one notification per write batch.
	for _, table := range []string{domain.TableAttendance, domain.TableTeachers, domain.TableTimetable, domain.TableSettings} {
		trigger := table + "_notify"
		if err := db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, table)).Error; err != nil {
			return fmt.Errorf("failed to drop trigger %s: %w", trigger, err)
		}
		if err := db.Exec(fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
			FOR EACH STATEMENT EXECUTE FUNCTION notify_table_change()`, trigger, table)).Error; err != nil {
			return fmt.Errorf("failed to create trigger %s: %w", trigger, err)
		}
	}

	return nil
}
