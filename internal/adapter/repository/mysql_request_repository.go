package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	apperrors "agriconnect/pkg/errors"
)

const selectRequestColumns = `SELECT id, farmer_id, farmer_name, seller_id, seller_name, crop, region, price, status, created_at, updated_at FROM match_requests`

type mysqlRequestRepository struct {
	db *sql.DB
}

func NewMySQLRequestRepository(db *sql.DB) repository.RequestRepository {
	return &mysqlRequestRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*entity.MatchRequest, error) {
	var r entity.MatchRequest
	var status string
	if err := row.Scan(&r.ID, &r.FarmerID, &r.FarmerName, &r.SellerID, &r.SellerName, &r.Crop, &r.Region, &r.Price, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = entity.RequestStatus(status)
	return &r, nil
}

func (r *mysqlRequestRepository) Create(ctx context.Context, request *entity.MatchRequest) error {
	now := time.Now().UTC()
	query := `INSERT INTO match_requests (farmer_id, farmer_name, seller_id, seller_name, crop, region, price, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		request.FarmerID, request.FarmerName, request.SellerID, request.SellerName,
		request.Crop, request.Region, request.Price, string(request.Status), now, now)
	if err != nil {
		return apperrors.Internal("Failed to create request", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("Failed to read request id", err)
	}
	request.ID = id
	request.CreatedAt = now
	request.UpdatedAt = now
	return nil
}

func (r *mysqlRequestRepository) GetByID(ctx context.Context, id int64) (*entity.MatchRequest, error) {
	request, err := scanRequest(r.db.QueryRowContext(ctx, selectRequestColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Request", err)
		}
		return nil, apperrors.Internal("Failed to get request", err)
	}
	return request, nil
}

func (r *mysqlRequestRepository) Update(ctx context.Context, id int64, mutate func(*entity.MatchRequest) error) (*entity.MatchRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	// FOR UPDATE serializes concurrent transitions of the same row.
	request, err := scanRequest(tx.QueryRowContext(ctx, selectRequestColumns+` WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Request", err)
		}
		return nil, apperrors.Internal("Failed to lock request", err)
	}

	if err := mutate(request); err != nil {
		return nil, err
	}
	request.ID = id
	request.UpdatedAt = time.Now().UTC()

	query := `UPDATE match_requests SET farmer_name = ?, seller_name = ?, crop = ?, region = ?, price = ?, status = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query,
		request.FarmerName, request.SellerName, request.Crop, request.Region,
		request.Price, string(request.Status), request.UpdatedAt, id); err != nil {
		return nil, apperrors.Internal("Failed to update request", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("Failed to commit request update", err)
	}
	return request, nil
}

func (r *mysqlRequestRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM match_requests WHERE id = ?`, id)
	if err != nil {
		return apperrors.Internal("Failed to delete request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Internal("Failed to delete request", err)
	}
	if n == 0 {
		return apperrors.NotFound("Request", nil)
	}
	return nil
}

func (r *mysqlRequestRepository) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.MatchRequest, error) {
	var (
		query string
		args  []any
	)
	switch filter.Role {
	case entity.RoleFarmer:
		query = selectRequestColumns + ` WHERE farmer_id = ?`
		args = append(args, filter.ParticipantID)
	case entity.RoleSeller:
		query = selectRequestColumns + ` WHERE seller_id = ?`
		args = append(args, filter.ParticipantID)
	default:
		query = selectRequestColumns + ` WHERE (farmer_id = ? OR seller_id = ?)`
		args = append(args, filter.ParticipantID, filter.ParticipantID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Internal("Failed to list requests", err)
	}
	defer rows.Close()

	result := make([]*entity.MatchRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, apperrors.Internal("Failed to parse request row", err)
		}
		result = append(result, request)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("Failed to list requests", err)
	}
	return result, nil
}

func (r *mysqlRequestRepository) ExistsPending(ctx context.Context, farmerID, sellerID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM match_requests WHERE farmer_id = ? AND seller_id = ? AND status = ? LIMIT 1`,
		farmerID, sellerID, string(entity.StatusPending)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Internal("Failed to query pending requests", err)
	}
	return true, nil
}
