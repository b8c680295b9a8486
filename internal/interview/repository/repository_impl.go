package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/interview/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSetup(ctx context.Context, db *gorm.DB, s *domain.Setup) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO interview_setups (id, position_id, round_number, interview_format, interview_rounds, technical_assessment_required, additional_interviewers, notes, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.PositionID,
		s.RoundNumber,
		s.InterviewFormat,
		s.InterviewRounds,
		s.TechnicalAssessmentRequired,
		s.AdditionalInterviewers,
		s.Notes,
		s.CreatedBy,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) UpdateSetup(ctx context.Context, db *gorm.DB, s *domain.Setup) error {
	return db.WithContext(ctx).Exec(
		`UPDATE interview_setups
		 SET interview_format = ?, interview_rounds = ?, technical_assessment_required = ?, additional_interviewers = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		s.InterviewFormat,
		s.InterviewRounds,
		s.TechnicalAssessmentRequired,
		s.AdditionalInterviewers,
		s.Notes,
		s.UpdatedAt,
		s.ID,
	).Error
}

func (r *repo) FindSetup(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Setup, error) {
	return r.findSetup(ctx, db, "id = ?", id)
}

func (r *repo) FindSetupByPosition(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (*domain.Setup, error) {
	return r.findSetup(ctx, db, "position_id = ?", positionID)
}

func (r *repo) findSetup(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Setup, error) {
	var s domain.Setup
	err := db.WithContext(ctx).Where(where, arg).Limit(1).Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) InsertSlots(ctx context.Context, db *gorm.DB, slots []domain.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(slots, insertBatchSize).Error
}

func (r *repo) FindSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Slot, error) {
	var s domain.Slot
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) ListSlots(ctx context.Context, db *gorm.DB, filter domain.SlotFilter) ([]domain.Slot, error) {
	stmt := db.WithContext(ctx).Model(&domain.Slot{})
	if filter.SetupID != 0 {
		stmt = stmt.Where("setup_id = ?", filter.SetupID)
	}
	if filter.PositionID != 0 {
		stmt = stmt.Where("position_id = ?", filter.PositionID)
	}
	if filter.CandidateID != 0 {
		stmt = stmt.Where("candidate_id = ?", filter.CandidateID)
	}
	if filter.RoundNumber > 0 {
		stmt = stmt.Where("round_number = ?", filter.RoundNumber)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var items []domain.Slot
	err := stmt.Order("slot_date asc").Order("start_time asc").Order("id asc").Find(&items).Error
	return items, err
}

func (r *repo) CountSlotsByStatus(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (map[domain.SlotStatus]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS count
		 FROM interview_slots
		 WHERE position_id = ?
		 GROUP BY status`,
		positionID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SlotStatus]int64, len(rows))
	for _, row := range rows {
		out[domain.SlotStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *repo) MaxBookedRound(ctx context.Context, db *gorm.DB, setupID snowflake.ID) (int, error) {
	var round int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(round_number), 0) FROM interview_slots WHERE setup_id = ? AND status = ?`,
		setupID, domain.SlotStatusBooked,
	).Scan(&round).Error
	return round, err
}

// The booked-slot probe is wrapped in a derived table so MySQL accepts a
// subquery over the table being updated.
func (r *repo) ClaimSlot(ctx context.Context, db *gorm.DB, slotID, candidateID snowflake.ID, round int, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE interview_slots
		 SET status = ?, candidate_id = ?, booked_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM (
		       SELECT id FROM interview_slots
		       WHERE candidate_id = ? AND round_number = ? AND status = ?
		     ) AS held
		   )`,
		domain.SlotStatusBooked, candidateID, at, at,
		slotID, domain.SlotStatusOpen,
		candidateID, round, domain.SlotStatusBooked,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkConfirmed(ctx context.Context, db *gorm.DB, slotID, candidateID snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE interview_slots
		 SET candidate_confirmed = ?, confirmed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND candidate_id = ? AND candidate_confirmed = ?`,
		true, at, at,
		slotID, domain.SlotStatusBooked, candidateID, false,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, slotID snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE interview_slots
		 SET status = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.SlotStatusCancelled, at, at,
		slotID, domain.SlotStatusOpen,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) HasBookingForRound(ctx context.Context, db *gorm.DB, candidateID snowflake.ID, round int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM interview_slots WHERE candidate_id = ? AND round_number = ? AND status = ?`,
		candidateID, round, domain.SlotStatusBooked,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) InsertFeedback(ctx context.Context, db *gorm.DB, f *domain.Feedback) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO interview_feedback (id, slot_id, candidate_id, position_id, round_number, reviewer_id, recommendation, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.SlotID,
		f.CandidateID,
		f.PositionID,
		f.RoundNumber,
		f.ReviewerID,
		f.Recommendation,
		f.Notes,
		f.CreatedAt,
	).Error
}

func (r *repo) FindFeedbackBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID) (*domain.Feedback, error) {
	var f domain.Feedback
	err := db.WithContext(ctx).Where("slot_id = ?", slotID).Limit(1).Find(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) CountPendingFeedback(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT s.candidate_id)
		 FROM interview_slots s
		 JOIN candidates c ON c.id = s.candidate_id
		 LEFT JOIN interview_feedback f ON f.slot_id = s.id
		 WHERE s.position_id = ? AND s.status = ?
		   AND c.current_stage = ? AND c.current_status = ?
		   AND f.id IS NULL`,
		positionID, domain.SlotStatusBooked,
		"interview", "completed",
	).Scan(&count).Error
	return count, err
}
