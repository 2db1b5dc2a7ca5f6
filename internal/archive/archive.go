// Package archive persists completed-game summaries to postgres. Live
// sessions never touch the database; only the final result of a finished
// run is written, so losing the process still loses every open room.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecospy/ecospy-backend/internal/game"
)

// GameResult is one finished run.
type GameResult struct {
	ID            uint   `gorm:"primaryKey"`
	RoomCode      string `gorm:"size:8;index"`
	FinalTime     int64
	MaxTime       int
	PlayerNames   string `gorm:"size:512"`
	SolvedPuzzles string `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

type Archive struct {
	db *gorm.DB
}

func Open(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}
	if err := db.AutoMigrate(&GameResult{}); err != nil {
		return nil, fmt.Errorf("migrating archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Record writes one summary row.
func (a *Archive) Record(ctx context.Context, code string, sum *game.Summary) error {
	solved, err := json.Marshal(sum.SolvedPuzzles)
	if err != nil {
		return fmt.Errorf("encoding solved puzzles: %w", err)
	}

	names := ""
	for i, p := range sum.Players {
		if i > 0 {
			names += ", "
		}
		names += p.Name
	}

	row := GameResult{
		RoomCode:      code,
		FinalTime:     sum.FinalTime,
		MaxTime:       sum.MaxTime,
		PlayerNames:   names,
		SolvedPuzzles: string(solved),
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting game result: %w", err)
	}
	return nil
}
