package repository

import (
	"database/sql"

	"github.com/molevo/broadcast-backend/internal/model"
)

type UserRepositoryInterface interface {
	GetByID(id int64) (*model.User, error)
}

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	query := `SELECT id, email, full_name, position FROM users WHERE id=$1`
	var u model.User
	err := r.DB.QueryRow(query, id).Scan(&u.ID, &u.Email, &u.FullName, &u.Position)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
