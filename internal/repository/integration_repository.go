package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/molevo/broadcast-backend/internal/model"
)

type IntegrationRepositoryInterface interface {
	// IDsByBrands expands brand ids into the integration ids they own.
	IDsByBrands(brandIDs []int64) ([]int64, error)
	FindByBrandAndKind(brandID int64, kind string) (*model.Integration, error)
}

// IntegrationRepository reads the integration directory. When Cache is set,
// brand expansions are kept in Redis for a short TTL; a nil Cache disables
// caching entirely.
type IntegrationRepository struct {
	DB    *sql.DB
	Cache *redis.Client
}

const brandCacheTTL = 5 * time.Minute

func (r *IntegrationRepository) IDsByBrands(brandIDs []int64) ([]int64, error) {
	ids := []int64{}
	for _, brandID := range brandIDs {
		brandIntegrations, err := r.idsByBrand(brandID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, brandIntegrations...)
	}
	return ids, nil
}

func (r *IntegrationRepository) idsByBrand(brandID int64) ([]int64, error) {
	key := fmt.Sprintf("brand_integrations:%d", brandID)

	if r.Cache != nil {
		cached, err := r.Cache.Get(context.Background(), key).Result()
		if err == nil {
			var ids []int64
			if err := json.Unmarshal([]byte(cached), &ids); err == nil {
				return ids, nil
			}
		}
	}

	rows, err := r.DB.Query(`SELECT id FROM integrations WHERE brand_id=$1`, brandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.Cache != nil {
		if encoded, err := json.Marshal(ids); err == nil {
			// cache failures are not worth failing the lookup over
			_ = r.Cache.Set(context.Background(), key, encoded, brandCacheTTL).Err()
		}
	}

	return ids, nil
}

func (r *IntegrationRepository) FindByBrandAndKind(brandID int64, kind string) (*model.Integration, error) {
	query := `SELECT id, brand_id, kind, name FROM integrations WHERE brand_id=$1 AND kind=$2 LIMIT 1`
	var i model.Integration
	err := r.DB.QueryRow(query, brandID, kind).Scan(&i.ID, &i.BrandID, &i.Kind, &i.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

var _ IntegrationRepositoryInterface = (*IntegrationRepository)(nil)
