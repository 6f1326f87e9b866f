package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	apperrors "agriconnect/pkg/errors"
)

const selectParticipantColumns = `SELECT id, role, display_name, district, commodities, rating, experience_years, created_at FROM participants`

type mysqlParticipantRepository struct {
	db *sql.DB
}

func NewMySQLParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &mysqlParticipantRepository{db: db}
}

func scanParticipant(row rowScanner) (*entity.Participant, error) {
	var (
		p           entity.Participant
		role        string
		commodities string
		rating      sql.NullFloat64
		experience  sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &role, &p.DisplayName, &p.District, &commodities, &rating, &experience, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = entity.Role(role)
	if commodities != "" {
		if err := json.Unmarshal([]byte(commodities), &p.Commodities); err != nil {
			return nil, err
		}
	}
	if rating.Valid {
		v := rating.Float64
		p.Rating = &v
	}
	if experience.Valid {
		v := experience.Float64
		p.ExperienceYears = &v
	}
	return &p, nil
}

func (r *mysqlParticipantRepository) Upsert(ctx context.Context, participant *entity.Participant) error {
	commodities, err := json.Marshal(participant.Commodities)
	if err != nil {
		return apperrors.Internal("Failed to encode commodities", err)
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO participants (id, role, display_name, district, commodities, rating, experience_years, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE role = VALUES(role), display_name = VALUES(display_name), district = VALUES(district),
		commodities = VALUES(commodities), rating = VALUES(rating), experience_years = VALUES(experience_years)`
	if _, err := r.db.ExecContext(ctx, query,
		participant.ID, string(participant.Role), participant.DisplayName, participant.District,
		string(commodities), participant.Rating, participant.ExperienceYears, participant.CreatedAt); err != nil {
		return apperrors.Internal("Failed to save participant", err)
	}
	return nil
}

func (r *mysqlParticipantRepository) GetByID(ctx context.Context, id string) (*entity.Participant, error) {
	p, err := scanParticipant(r.db.QueryRowContext(ctx, selectParticipantColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Participant", err)
		}
		return nil, apperrors.Internal("Failed to get participant", err)
	}
	return p, nil
}

func (r *mysqlParticipantRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Participant, error) {
	rows, err := r.db.QueryContext(ctx, selectParticipantColumns+` WHERE role = ? ORDER BY id`, string(role))
	if err != nil {
		return nil, apperrors.Internal("Failed to query participants", err)
	}
	defer rows.Close()

	participants := make([]*entity.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			continue // Skip malformed rows
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("Failed to query participants", err)
	}
	return participants, nil
}
