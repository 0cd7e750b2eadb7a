package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/utils"
)

const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Video struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	VideoID   int  `gorm:"uniqueIndex:idx_video_id" json:"video_id"`
	CreatedAt time.Time
}

type Segment struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"`
	VideoID  int     `gorm:"uniqueIndex:idx_segment_pos,priority:1;index:idx_video" json:"video_id"`
	Quality  int     `gorm:"uniqueIndex:idx_segment_pos,priority:2" json:"quality"`
	Position int     `gorm:"uniqueIndex:idx_segment_pos,priority:3" json:"position"`
	Size     float64 `json:"size"`
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Video{}, &Segment{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Save replaces the stored database with db in a single transaction.
func (c *DBClient) Save(db models.Database) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Segment{}).Error; err != nil {
			return fmt.Errorf("clearing segments: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Video{}).Error; err != nil {
			return fmt.Errorf("clearing videos: %w", err)
		}

		entries := make([]Segment, 0, 1024)
		for _, id := range db.IDs() {
			if err := tx.Create(&Video{VideoID: id}).Error; err != nil {
				return fmt.Errorf("creating video %d: %w", id, err)
			}
			for q, seq := range db[id] {
				for pos, size := range seq {
					entries = append(entries, Segment{VideoID: id, Quality: q, Position: pos, Size: size})
					if len(entries) >= 1000 {
						if err := tx.CreateInBatches(entries, 500).Error; err != nil {
							return fmt.Errorf("batch insert segments: %w", err)
						}
						entries = entries[:0]
					}
				}
			}
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(entries, 500).Error; err != nil {
				return fmt.Errorf("batch insert last segments: %w", err)
			}
		}
		return nil
	})
}

// Load rebuilds the database. Every stored video is present, even one
// without segments.
func (c *DBClient) Load() (models.Database, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var videos []Video
	if err := c.DB.Order("video_id").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("querying videos: %w", err)
	}
	db := make(models.Database, len(videos))
	for _, v := range videos {
		db[v.VideoID] = models.Fingerprint{[]float64{}, []float64{}, []float64{}}
	}

	var rows []Segment
	if err := c.DB.Order("video_id, quality, position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	for _, r := range rows {
		fp, ok := db[r.VideoID]
		if !ok {
			return nil, fmt.Errorf("segment %d references unknown video %d", r.ID, r.VideoID)
		}
		if r.Quality < 0 || r.Quality >= models.NumQualities {
			return nil, fmt.Errorf("segment %d has invalid quality %d", r.ID, r.Quality)
		}
		if r.Position != len(fp[r.Quality]) {
			return nil, fmt.Errorf("video %d quality %s: missing segment before position %d", r.VideoID, models.Quality(r.Quality), r.Position)
		}
		fp[r.Quality] = append(fp[r.Quality], r.Size)
		db[r.VideoID] = fp
	}
	return db, nil
}
