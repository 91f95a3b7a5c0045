package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
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
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "reservations_schema_migrations",
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

func (s *PostgresStore) Insert(ctx context.Context, res *domain.Reservation) error {
	query := `INSERT INTO reservations (order_id, product_id, color, quantity, status, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := s.db.ExecContext(ctx, query,
		res.OrderID,
		res.ProductID,
		res.Color,
		res.Quantity,
		res.Status,
		res.ExpiresAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReservation
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error) {
	query := `SELECT order_id, product_id, color, quantity, status, expires_at, created_at
	          FROM reservations WHERE order_id = $1 ORDER BY product_id, color`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query reservations by order: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.OrderID,
			&res.ProductID,
			&res.Color,
			&res.Quantity,
			&res.Status,
			&res.ExpiresAt,
			&res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		out = append(out, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

func (s *PostgresStore) UpdateStatusByOrder(ctx context.Context, orderID string, from, to domain.ReservationStatus) (int64, error) {
	query := `UPDATE reservations SET status = $1 WHERE order_id = $2 AND status = $3`

	result, err := s.db.ExecContext(ctx, query, to, orderID, from)
	if err != nil {
		return 0, fmt.Errorf("update reservation status: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) CancelExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE reservations SET status = $1 WHERE status = $2 AND expires_at < $3`

	result, err := s.db.ExecContext(ctx, query,
		domain.ReservationStatusCancelled,
		domain.ReservationStatusReserved,
		now)
	if err != nil {
		return 0, fmt.Errorf("cancel expired reservations: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
