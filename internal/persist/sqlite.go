package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dcsim/dc-simulator/pkg/model"
)

// snapshotRow is the SQLite row for one tick's FacilityState, grounded on the
// teacher's MetricSnapshot table: one row per tick, the subsystem summaries
// folded into scalar columns plus a JSON blob for the full detail.
type snapshotRow struct {
	ID        uint      `gorm:"primaryKey"`
	TickCount int       `gorm:"index"`
	ClockS    float64   `gorm:"index"`
	ITKW      float64
	PUE       float64
	FacilityKW float64
	CarbonKG  float64
	CarbonGBP float64
	ThrottledRacks int
	ActiveFailures int
	PendingJobs    int
	RunningJobs    int
	RawJSON   string
	CreatedAt time.Time
}

// auditRow is the SQLite row for one AuditEntry, grounded on the teacher's
// Event table.
type auditRow struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp float64   `gorm:"index"`
	Action    string    `gorm:"index"`
	Source    string
	Result    string
	ParamsJSON string
	CreatedAt time.Time
}

// SQLiteSink persists snapshots and audit entries to a SQLite database via
// gorm, the way the teacher's internal/database persisted simulation runs.
type SQLiteSink struct {
	db *gorm.DB
}

// NewSQLiteSink opens (creating if needed) a SQLite database at path and
// auto-migrates its schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}, &auditRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite sink: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) WriteSnapshot(snap model.FacilityState) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	row := snapshotRow{
		TickCount:      snap.TickCount,
		ClockS:         snap.Clock,
		ITKW:           snap.Power.ITKW,
		PUE:            snap.Power.PUE,
		FacilityKW:     snap.Power.FacilityKW,
		CarbonKG:       snap.Carbon.CumulativeKG,
		CarbonGBP:      snap.Carbon.CumulativeGBP,
		ThrottledRacks: snap.Thermal.ThrottledCnt,
		ActiveFailures: len(snap.ActiveFailures),
		PendingJobs:    snap.Workload.PendingCount,
		RunningJobs:    snap.Workload.RunningCount,
		RawJSON:        string(raw),
		CreatedAt:      time.Now(),
	}
	return s.db.Create(&row).Error
}

func (s *SQLiteSink) WriteAudit(entry model.AuditEntry) error {
	params, err := json.Marshal(entry.Params)
	if err != nil {
		return err
	}
	row := auditRow{
		Timestamp:  entry.Timestamp,
		Action:     entry.Action,
		Source:     entry.Source,
		Result:     entry.Result,
		ParamsJSON: string(params),
		CreatedAt:  time.Now(),
	}
	return s.db.Create(&row).Error
}

func (s *SQLiteSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
