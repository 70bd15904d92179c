package adminstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

// LoadSeedFile reads a JSON array of admin products.
func LoadSeedFile(path string) ([]domain.AdminProduct, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var products []domain.AdminProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return products, nil
}

// Seed upserts products into repo and returns how many were new.
func Seed(ctx context.Context, repo Repository, products []domain.AdminProduct) (int, error) {
	added := 0
	for _, p := range products {
		isNew, err := repo.Upsert(ctx, p)
		if err != nil {
			return added, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
		if isNew {
			added++
		}
	}
	return added, nil
}
