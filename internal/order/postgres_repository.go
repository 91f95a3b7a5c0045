package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_checkout/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	selectedJSON, err := json.Marshal(order.SelectedItems)
	if err != nil {
		return fmt.Errorf("failed to marshal selected items: %w", err)
	}

	query := `INSERT INTO orders (id, transaction_id, user_id, status, items, selected_items, shipping_address, payment_method, payment_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.TransactionID,
		order.UserID,
		order.Status,
		itemsJSON,
		selectedJSON,
		order.ShippingAddress,
		order.PaymentMethod,
		order.PaymentID)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *PostgresRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.Order, error) {
	query := `SELECT id, transaction_id, user_id, status, items, selected_items, shipping_address, payment_method, payment_id, created_at, updated_at
	          FROM orders WHERE transaction_id = $1`

	var order domain.Order
	var itemsJSON, selectedJSON []byte
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&order.ID,
		&order.TransactionID,
		&order.UserID,
		&order.Status,
		&itemsJSON,
		&selectedJSON,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.PaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by transaction: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(selectedJSON, &order.SelectedItems); err != nil {
		return nil, fmt.Errorf("unmarshal selected items: %w", err)
	}

	return &order, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, transactionID string, from, to domain.CheckoutStatus, paymentID string) error {
	query := `UPDATE orders SET status = $1, payment_id = COALESCE(NULLIF($2, ''), payment_id), updated_at = NOW()
	          WHERE transaction_id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, paymentID, transactionID, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
