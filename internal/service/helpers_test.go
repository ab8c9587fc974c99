package service

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/s2010/story-twister/internal/config"
	"github.com/s2010/story-twister/internal/generator"
	"github.com/s2010/story-twister/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Team{},
		&model.GameSession{},
		&model.Story{},
		&model.Turn{},
		&model.SessionAnalysis{},
		&model.AdminAction{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Game = config.GameConfig{StoryDurationMinutes: 10, TwistInterval: 2}
	cfg.Scoring = config.DefaultScoring()
	return cfg
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	stories  *StoryService
	sessions *SessionService
	analyses *AnalysisService
}

// newFixture wires the services over a throwaway sqlite database with a
// generator that always uses its fallback pools.
func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	db := newTestDB(t)
	writer := generator.NewWriter(nil, cfg.Generator, nil)
	feed := NewFeedHub(nil)
	stories := NewStoryService(db, cfg, writer, feed, nil)
	return &fixture{
		db:       db,
		cfg:      cfg,
		stories:  stories,
		sessions: NewSessionService(db, cfg, stories, feed, nil),
		analyses: NewAnalysisService(db, cfg, writer, stories, feed, nil),
	}
}

func seedTeam(t *testing.T, db *gorm.DB, code string) *model.Team {
	t.Helper()
	team := &model.Team{ID: uuid.New().String(), Code: code, Name: "Team " + code}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team
}
