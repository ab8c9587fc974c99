package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/pkg/constants"
)

// ReportService builds the read-only operator views: the live snapshot, the
// team leaderboard and the event exports. It never mutates game state.
type ReportService struct {
	db      *gorm.DB
	stories *StoryService
	log     *zap.Logger
}

// NewReportService creates a ReportService.
func NewReportService(db *gorm.DB, stories *StoryService, log *zap.Logger) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{db: db, stories: stories, log: log}
}

// Snapshot returns the live state of every team.
func (s *ReportService) Snapshot() (*model.SnapshotResponse, error) {
	var teams []model.Team
	if err := s.db.Order("created_at ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	now := time.Now().UTC()
	resp := &model.SnapshotResponse{
		Teams:       make([]model.SnapshotTeam, 0, len(teams)),
		TotalTeams:  len(teams),
		GeneratedAt: now,
	}

	for i := range teams {
		team := &teams[i]
		entry := model.SnapshotTeam{
			TeamCode:      team.Code,
			TeamName:      team.Name,
			SessionStatus: "none",
			LastMessages:  []model.TurnView{},
		}

		var session model.GameSession
		err := s.db.Where("team_id = ?", team.ID).Order("created_at DESC").First(&session).Error
		if err == nil {
			entry.SessionID = session.ID
			entry.SessionStatus = session.Status
			if session.Status == string(model.SessionStatusActive) {
				resp.ActiveSessions++
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find session: %w", err)
		}

		var story model.Story
		err = s.db.Where("team_id = ?", team.ID).Order("created_at DESC").First(&story).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resp.Teams = append(resp.Teams, entry)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find story: %w", err)
		}

		entry.StoryID = story.ID
		entry.StoryTitle = story.Title
		entry.StoryStatus = story.Status
		entry.CurrentTurn = story.CurrentTurn
		if story.Status == string(model.StoryStatusActive) {
			entry.TimeRemainingSeconds = int(s.stories.timeRemaining(&story, now).Seconds())
		}

		var twists int64
		if err := s.db.Model(&model.Turn{}).
			Where("story_id = ? AND is_twist = ?", story.ID, true).Count(&twists).Error; err != nil {
			return nil, fmt.Errorf("count twists: %w", err)
		}
		entry.TwistCount = int(twists)

		var participants int64
		if err := s.db.Model(&model.Turn{}).
			Where("story_id = ? AND is_twist = ? AND author_name <> ?", story.ID, false, constants.SeedPersona).
			Distinct("author_name").Count(&participants).Error; err != nil {
			return nil, fmt.Errorf("count participants: %w", err)
		}
		entry.Participants = int(participants)

		var last []model.Turn
		if err := s.db.Where("story_id = ?", story.ID).
			Order("turn_number DESC").Limit(2).Find(&last).Error; err != nil {
			return nil, fmt.Errorf("load last turns: %w", err)
		}
		// Reverse to chronological order.
		for j := len(last) - 1; j >= 0; j-- {
			entry.LastMessages = append(entry.LastMessages, model.TurnFromEntity(&last[j]))
			if entry.LastActivity == nil {
				at := last[j].CreatedAt
				entry.LastActivity = &at
			}
		}

		resp.Teams = append(resp.Teams, entry)
	}
	return resp, nil
}

// Leaderboard aggregates per-team totals and average scores across all
// stories, ranked by completed stories then total turns.
func (s *ReportService) Leaderboard() (*model.LeaderboardResponse, error) {
	var teams []model.Team
	if err := s.db.Order("created_at ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	resp := &model.LeaderboardResponse{
		Teams:      make([]model.LeaderboardTeam, 0, len(teams)),
		TotalTeams: len(teams),
	}
	for i := range teams {
		team := &teams[i]
		row := model.LeaderboardTeam{TeamCode: team.Code, TeamName: team.Name, SessionStatus: "none"}

		var stories []model.Story
		if err := s.db.Where("team_id = ?", team.ID).Find(&stories).Error; err != nil {
			return nil, fmt.Errorf("list stories: %w", err)
		}
		storyIDs := make([]string, 0, len(stories))
		for _, st := range stories {
			storyIDs = append(storyIDs, st.ID)
			if st.Status == string(model.StoryStatusCompleted) {
				row.StoriesCompleted++
			}
		}

		if len(storyIDs) > 0 {
			var total, twists, user int64
			if err := s.db.Model(&model.Turn{}).Where("story_id IN ?", storyIDs).
				Count(&total).Error; err != nil {
				return nil, fmt.Errorf("count turns: %w", err)
			}
			if err := s.db.Model(&model.Turn{}).
				Where("story_id IN ? AND is_twist = ?", storyIDs, true).Count(&twists).Error; err != nil {
				return nil, fmt.Errorf("count twists: %w", err)
			}
			if err := s.db.Model(&model.Turn{}).
				Where("story_id IN ? AND is_twist = ? AND author_name <> ?", storyIDs, false, constants.SeedPersona).
				Count(&user).Error; err != nil {
				return nil, fmt.Errorf("count user turns: %w", err)
			}
			row.TotalTurns = int(total)
			row.TwistCount = int(twists)
			row.UserTurns = int(user)

			var participants int64
			if err := s.db.Model(&model.Turn{}).
				Where("story_id IN ? AND is_twist = ? AND author_name <> ?", storyIDs, false, constants.SeedPersona).
				Distinct("author_name").Count(&participants).Error; err != nil {
				return nil, fmt.Errorf("count participants: %w", err)
			}
			row.Participants = int(participants)

			var lastTurn model.Turn
			err := s.db.Where("story_id IN ?", storyIDs).Order("created_at DESC").First(&lastTurn).Error
			if err == nil {
				at := lastTurn.CreatedAt
				row.LastActive = &at
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("find last turn: %w", err)
			}

			type avgRow struct {
				Creativity    float64
				Engagement    float64
				Collaboration float64
				N             int64
			}
			var avg avgRow
			err = s.db.Model(&model.SessionAnalysis{}).
				Select("AVG(creativity_score) AS creativity, AVG(engagement_score) AS engagement, AVG(collaboration_score) AS collaboration, COUNT(*) AS n").
				Where("story_id IN ?", storyIDs).Scan(&avg).Error
			if err != nil {
				return nil, fmt.Errorf("average scores: %w", err)
			}
			if avg.N > 0 {
				row.AvgCreativityScore = &avg.Creativity
				row.AvgEngagementScore = &avg.Engagement
				row.AvgCollabScore = &avg.Collaboration
			}
		}

		var session model.GameSession
		err := s.db.Where("team_id = ?", team.ID).Order("created_at DESC").First(&session).Error
		if err == nil {
			row.SessionStatus = session.Status
			row.SessionEndedAt = session.EndedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find session: %w", err)
		}

		resp.Teams = append(resp.Teams, row)
	}

	// Completed stories first, then sheer volume.
	sort.SliceStable(resp.Teams, func(i, j int) bool {
		a, b := resp.Teams[i], resp.Teams[j]
		if a.StoriesCompleted != b.StoriesCompleted {
			return a.StoriesCompleted > b.StoriesCompleted
		}
		return a.TotalTurns > b.TotalTurns
	})
	return resp, nil
}

// Export returns every story with its full turn log and scorecard.
func (s *ReportService) Export() (*model.ExportResponse, error) {
	var teams []model.Team
	if err := s.db.Order("created_at ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	resp := &model.ExportResponse{GeneratedAt: time.Now().UTC(), Stories: []model.ExportStory{}}
	for i := range teams {
		team := &teams[i]
		var stories []model.Story
		if err := s.db.Where("team_id = ?", team.ID).Order("created_at ASC").Find(&stories).Error; err != nil {
			return nil, fmt.Errorf("list stories: %w", err)
		}
		for j := range stories {
			story := &stories[j]
			turns, err := s.stories.orderedTurns(story.ID)
			if err != nil {
				return nil, err
			}
			views := make([]model.TurnView, 0, len(turns))
			for k := range turns {
				views = append(views, model.TurnFromEntity(&turns[k]))
			}

			entry := model.ExportStory{
				TeamCode: team.Code,
				TeamName: team.Name,
				Story:    model.StoryFromEntity(story),
				Turns:    views,
			}
			var analysis model.SessionAnalysis
			err = s.db.Where("story_id = ?", story.ID).First(&analysis).Error
			if err == nil {
				view := model.AnalysisFromEntity(&analysis)
				entry.Analysis = &view
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("load analysis: %w", err)
			}
			resp.Stories = append(resp.Stories, entry)
		}
	}
	return resp, nil
}
