package dbtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

func SeedSchool(t *testing.T, pg *db.Postgres, name string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := pg.Pool.Exec(context.Background(),
		`INSERT INTO schools (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err, "failed to seed school")
	return id
}

func SeedProduct(t *testing.T, pg *db.Postgres, schoolID uuid.UUID, name, price string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := pg.Pool.Exec(context.Background(),
		`INSERT INTO products (id, school_id, name, image_url, price, stock) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, schoolID, name, "/img/"+name+".png", decimal.RequireFromString(price), stock)
	require.NoError(t, err, "failed to seed product")
	return id
}

func Stock(t *testing.T, pg *db.Postgres, productID uuid.UUID) int {
	t.Helper()
	var stock int
	err := pg.Pool.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func Count(t *testing.T, pg *db.Postgres, table string) int {
	t.Helper()
	var n int
	err := pg.Pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n)
	require.NoError(t, err)
	return n
}
