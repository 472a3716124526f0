package veax

import (
	"fmt"

	"veaxflow/internal/model"
)

// FindPool returns the first record for the (tokenA, tokenB) pair, order significant.
func FindPool(records []model.PoolRecord, tokenA, tokenB string) (model.PoolRecord, error) {
	for _, rec := range records {
		if rec.Matches(tokenA, tokenB) {
			return rec, nil
		}
	}
	return model.PoolRecord{}, fmt.Errorf("%s/%s: %w", tokenA, tokenB, ErrPoolNotFound)
}
