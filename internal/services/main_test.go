package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/orchid/internal/database"
	"github.com/example/orchid/internal/models"
)

var (
	testDB     *gorm.DB
	testUserID uuid.UUID
)

// TestMain starts one throwaway Postgres for the whole package. Row locks
// are part of what these tests exercise, so an embedded stand-in is not
// an option.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("orchid_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}

	conn, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.Migrate(conn); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	user := models.User{FirstName: "Test", LastName: "Staff", Email: "staff@example.com", PasswordHash: "x", IsStaff: true}
	if err := conn.Create(&user).Error; err != nil {
		log.Fatalf("failed to seed test user: %v", err)
	}
	testUserID = user.ID

	testDB = conn
	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}
	os.Exit(code)
}

var orderSeq int

// seedOrder creates an order plus its payment row in the given states.
// txnCode may be empty for orders that never went to a gateway.
func seedOrder(t *testing.T, status models.OrderStatus, paymentStatus models.PaymentStatus, txnCode string, amount int64) models.Order {
	t.Helper()

	orderSeq++
	order := models.Order{
		UserID:        testUserID,
		OrderNumber:   fmt.Sprintf("#%06d", orderSeq),
		Status:        status,
		PaymentStatus: paymentStatus,
		PaymentMethod: models.MethodEWallet,
		TotalAmount:   amount,
		Currency:      "VND",
		Recipient:     "Nguyen Van A",
		Phone:         "0900000000",
		AddressLine:   "1 Test St",
		City:          "Hanoi",
		PlacedAt:      time.Now(),
	}
	require.NoError(t, testDB.Create(&order).Error)

	payment := models.Payment{
		OrderID: order.ID,
		Status:  paymentStatus,
		Amount:  amount,
	}
	if txnCode != "" {
		payment.TransactionCode = &txnCode
		payment.Gateway = "vnpay"
	}
	require.NoError(t, testDB.Create(&payment).Error)

	return order
}

func reloadOrder(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, testDB.First(&order, "id = ?", id).Error)
	return order
}

func reloadPayment(t *testing.T, orderID uuid.UUID) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, testDB.First(&payment, "order_id = ?", orderID).Error)
	return payment
}

func auditRows(t *testing.T, orderID uuid.UUID) []models.OrderStatusLog {
	t.Helper()
	var logs []models.OrderStatusLog
	require.NoError(t, testDB.Where("order_id = ?", orderID).Order("created_at asc").Find(&logs).Error)
	return logs
}

func requireStatusCode(t *testing.T, err error, code string) {
	t.Helper()
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, code, statusErr.Code)
}
