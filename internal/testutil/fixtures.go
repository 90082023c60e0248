package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var TestStoreID = uuid.MustParse("00000000-0000-0000-0000-000000000010")

func SeedTestUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedCredit(t *testing.T, db *sql.DB, storeID, clientID uuid.UUID, totalAmount int64) *domain.Credit {
	t.Helper()

	now := time.Now().UTC()
	c := &domain.Credit{
		ID:            uuid.New(),
		StoreID:       storeID,
		ClientID:      clientID,
		ClientName:    "Maria Lopez",
		InvoiceNumber: "INV-" + uuid.NewString()[:8],
		TotalAmount:   totalAmount,
		PaidAmount:    0,
		PendingAmount: totalAmount,
		Status:        domain.CreditStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := db.Exec(
		`INSERT INTO credits (
			id, store_id, client_id, client_name, invoice_number,
			total_amount, paid_amount, pending_amount, status,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.StoreID, c.ClientID, c.ClientName, c.InvoiceNumber,
		c.TotalAmount, c.PaidAmount, c.PendingAmount, c.Status,
		c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	return c
}

func GetCreditAmounts(t *testing.T, db *sql.DB, creditID uuid.UUID) (paid, pending int64, status string) {
	t.Helper()

	err := db.QueryRow(
		`SELECT paid_amount, pending_amount, status FROM credits WHERE id = $1`, creditID,
	).Scan(&paid, &pending, &status)
	if err != nil {
		t.Fatalf("get credit amounts %s: %v", creditID, err)
	}
	return paid, pending, status
}

func SumActivePayments(t *testing.T, db *sql.DB, creditID uuid.UUID) int64 {
	t.Helper()

	var sum int64
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_records
		 WHERE credit_id = $1 AND status = 'active'`, creditID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum active payments %s: %v", creditID, err)
	}
	return sum
}

func CountPayments(t *testing.T, db *sql.DB, creditID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM payment_records WHERE credit_id = $1`, creditID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count payments %s: %v", creditID, err)
	}
	return count
}

func CountPendingEvents(t *testing.T, db *sql.DB, kind string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_events WHERE kind = $1 AND status = 'pending'`, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count pending events %s: %v", kind, err)
	}
	return count
}
