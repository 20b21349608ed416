package dsr

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists requests in the data_subject_requests table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, request Request) error {
	requestData, err := json.Marshal(request.RequestData)
	if err != nil {
		return fmt.Errorf("marshal request data: %w", err)
	}
	query := `
		INSERT INTO data_subject_requests (id, user_id, request_type, status, requested_at, completed_at, request_data, response_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		request.ID, request.UserID, string(request.Type), string(request.Status),
		request.RequestedAt, request.CompletedAt, requestData, []byte(request.ResponseData),
	)
	if err != nil {
		return fmt.Errorf("insert data subject request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Request, error) {
	query := `
		SELECT id, user_id, request_type, status, requested_at, completed_at, request_data, response_data
		FROM data_subject_requests
		WHERE id = $1
	`
	var (
		request      Request
		rtype        string
		status       string
		requestData  []byte
		responseData []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&request.ID, &request.UserID, &rtype, &status,
		&request.RequestedAt, &request.CompletedAt, &requestData, &responseData,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Request{}, fmt.Errorf("find data subject request: %w", err)
	}
	request.Type = RequestType(rtype)
	request.Status = Status(status)
	if len(requestData) > 0 {
		if err := json.Unmarshal(requestData, &request.RequestData); err != nil {
			return Request{}, fmt.Errorf("unmarshal request data: %w", err)
		}
	}
	request.ResponseData = responseData
	return request, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id uuid.UUID, response json.RawMessage, completedAt time.Time) error {
	query := `
		UPDATE data_subject_requests
		SET status = $2, response_data = $3, completed_at = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, string(StatusCompleted), []byte(response), completedAt)
	if err != nil {
		return fmt.Errorf("complete data subject request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status Status, completedAt *time.Time) error {
	query := `
		UPDATE data_subject_requests
		SET status = $2, completed_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, string(status), completedAt)
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountByTypeAndStatus(ctx context.Context, since time.Time) ([]TypeStatusCount, error) {
	query := `
		SELECT request_type, status, COUNT(*)
		FROM data_subject_requests
		WHERE requested_at >= $1
		GROUP BY request_type, status
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count data subject requests: %w", err)
	}
	defer rows.Close()

	var out []TypeStatusCount
	for rows.Next() {
		var (
			rtype  string
			status string
			n      int
		)
		if err := rows.Scan(&rtype, &status, &n); err != nil {
			return nil, fmt.Errorf("scan request count: %w", err)
		}
		out = append(out, TypeStatusCount{Type: RequestType(rtype), Status: Status(status), Count: n})
	}
	return out, rows.Err()
}
