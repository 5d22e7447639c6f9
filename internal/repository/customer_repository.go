package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/molevo/broadcast-backend/internal/model"
)

// CustomerRepositoryInterface defines the audience queries. Every By* query
// already excludes do-not-disturb customers; an absent flag means reachable.
type CustomerRepositoryInterface interface {
	GetByID(id int64) (*model.Customer, error)
	ByIDs(ids []int64) ([]model.Customer, error)
	ByTagIDs(tagIDs []int64) ([]model.Customer, error)
	ByIntegrationIDs(integrationIDs []int64) ([]model.Customer, error)

	// Each streams the whole collection row by row for segment evaluation.
	// Iteration is restartable: no state survives between calls.
	Each(fn func(c *model.Customer) error) error

	SetDoNotDisturb(id int64, value string) error
}

type CustomerRepository struct {
	DB *sql.DB
}

const customerColumns = `id, first_name, last_name, primary_email, primary_phone, integration_id, tag_ids, do_not_disturb`

const reachableClause = `(do_not_disturb IS NULL OR do_not_disturb <> 'Yes')`

func (r *CustomerRepository) GetByID(id int64) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	c, err := scanCustomer(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return c, nil
}

func (r *CustomerRepository) ByIDs(ids []int64) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
        WHERE id = ANY($1) AND ` + reachableClause
	return r.queryCustomers(query, pq.Array(ids))
}

// ByTagIDs matches customers whose tag set intersects the given tags.
func (r *CustomerRepository) ByTagIDs(tagIDs []int64) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
        WHERE tag_ids && $1 AND ` + reachableClause
	return r.queryCustomers(query, pq.Array(tagIDs))
}

func (r *CustomerRepository) ByIntegrationIDs(integrationIDs []int64) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
        WHERE integration_id = ANY($1) AND ` + reachableClause
	return r.queryCustomers(query, pq.Array(integrationIDs))
}

func (r *CustomerRepository) Each(fn func(c *model.Customer) error) error {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE ` + reachableClause

	rows, err := r.DB.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *CustomerRepository) SetDoNotDisturb(id int64, value string) error {
	_, err := r.DB.Exec(`UPDATE customers SET do_not_disturb=$1 WHERE id=$2`, value, id)
	return err
}

func (r *CustomerRepository) queryCustomers(query string, args ...interface{}) ([]model.Customer, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var (
		c   model.Customer
		dnd sql.NullString
	)
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.PrimaryEmail, &c.PrimaryPhone,
		&c.IntegrationID, pq.Array(&c.TagIDs), &dnd)
	if err != nil {
		return nil, err
	}
	c.DoNotDisturb = dnd.String
	return &c, nil
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
