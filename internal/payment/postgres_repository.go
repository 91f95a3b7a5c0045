package payment

import (
	"context"
	"database/sql"
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
		MigrationsTable: "payments_schema_migrations",
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

func (r *PostgresRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT transaction_id, order_id, payment_id, amount, status, failure_reason, created_at, updated_at
	          FROM payments WHERE transaction_id = $1`

	var p domain.Payment
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&p.TransactionID,
		&p.OrderID,
		&p.PaymentID,
		&p.Amount,
		&p.Status,
		&p.FailureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment by transaction: %w", err)
	}

	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `INSERT INTO payments (transaction_id, order_id, payment_id, amount, status, failure_reason, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		payment.TransactionID,
		payment.OrderID,
		payment.PaymentID,
		payment.Amount,
		payment.Status,
		payment.FailureReason)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetOutcome(ctx context.Context, transactionID string, status domain.PaymentStatus, paymentID, failureReason string) error {
	query := `UPDATE payments SET status = $1, payment_id = $2, failure_reason = $3, updated_at = NOW()
	          WHERE transaction_id = $4`

	result, err := r.db.ExecContext(ctx, query, status, paymentID, failureReason, transactionID)
	if err != nil {
		return fmt.Errorf("update payment outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment outcome: %w", err)
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
