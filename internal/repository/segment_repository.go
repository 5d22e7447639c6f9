package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/molevo/broadcast-backend/internal/model"
)

type SegmentRepositoryInterface interface {
	GetByID(id int64) (*model.Segment, error)
}

type SegmentRepository struct {
	DB *sql.DB
}

func (r *SegmentRepository) GetByID(id int64) (*model.Segment, error) {
	query := `SELECT id, name, description, conditions FROM segments WHERE id=$1`

	var (
		s          model.Segment
		conditions []byte
	)
	err := r.DB.QueryRow(query, id).Scan(&s.ID, &s.Name, &s.Description, &conditions)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &s.Conditions); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

var _ SegmentRepositoryInterface = (*SegmentRepository)(nil)
