// Package audit records operator actions. Recording is best effort: the
// core never fails a request because an audit row could not be written.
package audit

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/s2010/story-twister/internal/model"
)

// Recorder persists AdminAction rows and mirrors them to the log.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRecorder creates an audit recorder.
func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, log: log}
}

// Record writes one audit row. payload is marshaled to JSON; a nil payload
// leaves the column empty.
func (r *Recorder) Record(action, teamCode string, payload any, ip, userAgent string) {
	var payloadJSON string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			payloadJSON = string(b)
		}
	}
	row := &model.AdminAction{
		ID:          uuid.New().String(),
		Action:      action,
		TeamCode:    teamCode,
		PayloadJSON: payloadJSON,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	if err := r.db.Create(row).Error; err != nil {
		r.log.Warn("audit row not written", zap.String("action", action), zap.Error(err))
		return
	}
	r.log.Info("admin action",
		zap.String("action", action),
		zap.String("team_code", teamCode))
}
