//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"shop-bot/internal/config"
	"shop-bot/internal/database"
	"shop-bot/internal/models"
	"shop-bot/internal/repository"
	"shop-bot/internal/storeerr"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	code, err := run(m)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(m *testing.M) (int, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return 0, fmt.Errorf("failed to get connection string: %w", err)
	}
	parsed, err := pgx.ParseConfig(connStr)
	if err != nil {
		return 0, err
	}

	cfg := config.Default()
	cfg.DBHost = parsed.Host
	cfg.DBPort = int(parsed.Port)
	cfg.DBUser = "testuser"
	cfg.DBPassword = "testpass"
	cfg.DBName = "testdb"

	log := zerolog.Nop()
	testDB, err = database.ConnectPostgres(ctx, cfg, log)
	if err != nil {
		return 0, err
	}
	defer func() { _ = database.Close(testDB) }()

	connConfig, err := database.ConnConfig(cfg, log)
	if err != nil {
		return 0, err
	}
	// Twice: the second run must be a no-op.
	for i := 0; i < 2; i++ {
		if err := database.Migrate(ctx, testDB, connConfig, log); err != nil {
			return 0, err
		}
	}

	return m.Run(), nil
}

func setup(t *testing.T) (*repository.Repo, context.Context) {
	t.Helper()
	err := testDB.Exec("TRUNCATE orderproducts, orders, products, users RESTART IDENTITY CASCADE").Error
	require.NoError(t, err)
	return repository.New(testDB), context.Background()
}

func ptr[T any](v T) *T { return &v }

func TestAddUserThenGetUserByID(t *testing.T) {
	repo, ctx := setup(t)

	created, err := repo.AddUser(ctx, 1001, "Ada Lovelace", "en", ptr("ada"), nil)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := repo.GetUserByID(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada Lovelace", got.Fullname)
	assert.Equal(t, "en", got.LanguageCode)
	require.NotNil(t, got.UserName)
	assert.Equal(t, "ada", *got.UserName)
	assert.Nil(t, got.ReferrerID)
}

func TestGetUserByIDAbsent(t *testing.T) {
	repo, ctx := setup(t)

	got, err := repo.GetUserByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddUserUpsertUpdatesInPlace(t *testing.T) {
	repo, ctx := setup(t)

	first, err := repo.AddUser(ctx, 7, "Old Name", "en", ptr("old"), nil)
	require.NoError(t, err)

	second, err := repo.AddUser(ctx, 7, "New Name", "fa", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "New Name", second.Fullname)
	assert.Nil(t, second.UserName)
	// language_code is not part of the update set.
	assert.Equal(t, "en", second.LanguageCode)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var count int64
	require.NoError(t, testDB.Model(&models.User{}).Where("telegram_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetAllUsersCreationOrder(t *testing.T) {
	repo, ctx := setup(t)

	for _, id := range []int64{30, 10, 20, 5} {
		_, err := repo.AddUser(ctx, id, fmt.Sprintf("user %d", id), "en", nil, nil)
		require.NoError(t, err)
	}

	users, err := repo.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 4)
	for i := 1; i < len(users); i++ {
		assert.False(t, users[i].CreatedAt.Before(users[i-1].CreatedAt))
	}
	assert.Equal(t, int64(30), users[0].TelegramID)
}

func TestSearchUsers(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Pouria", "fa", ptr("POURIA"), nil)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 2, "Other", "de", ptr("pouria"), nil)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 3, "Third", "en", ptr("someone"), nil)
	require.NoError(t, err)

	users, err := repo.SearchUsers(ctx, repository.UserFilter{
		LanguageCodes:   []string{"en", "fa"},
		UserNamePattern: "pouria",
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].TelegramID)
}

func TestReferrerDeletionSetsNull(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Referrer", "en", nil, nil)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 2, "Referred", "en", nil, ptr(int64(1)))
	require.NoError(t, err)

	require.NoError(t, testDB.Exec("DELETE FROM users WHERE telegram_id = ?", 1).Error)

	referred, err := repo.GetUserByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, referred)
	assert.Nil(t, referred.ReferrerID)
}

func TestUserDeletionDetachesOrders(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Buyer", "en", nil, nil)
	require.NoError(t, err)
	order, err := repo.AddOrder(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, testDB.Exec("DELETE FROM users WHERE telegram_id = ?", 1).Error)

	var reloaded models.Order
	require.NoError(t, testDB.Take(&reloaded, "order_id = ?", order.OrderID).Error)
	assert.Nil(t, reloaded.UserID)
}

func TestUnknownReferrerIsRejected(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 2, "Referred", "en", nil, ptr(int64(999)))
	require.Error(t, err)
	assert.True(t, storeerr.IsForeignKeyViolation(err))
}

func TestOrderDeletionCascades(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Buyer", "en", nil, nil)
	require.NoError(t, err)
	product, err := repo.AddProduct(ctx, "Tea", nil, decimal.RequireFromString("3.5"))
	require.NoError(t, err)

	kept, err := repo.AddOrder(ctx, 1)
	require.NoError(t, err)
	dropped, err := repo.AddOrder(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.AddProductToOrder(ctx, kept.OrderID, product.ProductID, 1))
	require.NoError(t, repo.AddProductToOrder(ctx, dropped.OrderID, product.ProductID, 2))

	require.NoError(t, testDB.Exec("DELETE FROM orders WHERE order_id = ?", dropped.OrderID).Error)

	var lines int64
	require.NoError(t, testDB.Model(&models.OrderProduct{}).Where("order_id = ?", dropped.OrderID).Count(&lines).Error)
	assert.Zero(t, lines)

	rows, err := repo.GetAllUserOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, kept.OrderID, rows[0].Order.OrderID)
}

func TestProductDeletionCascades(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Buyer", "en", nil, nil)
	require.NoError(t, err)
	product, err := repo.AddProduct(ctx, "Tea", nil, decimal.NewFromInt(1))
	require.NoError(t, err)
	order, err := repo.AddOrder(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.AddProductToOrder(ctx, order.OrderID, product.ProductID, 1))

	require.NoError(t, testDB.Exec("DELETE FROM products WHERE product_id = ?", product.ProductID).Error)

	rows, err := repo.GetAllUserOrders(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetAllUserOrdersFlattensLineItems(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Buyer", "en", nil, nil)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 2, "Someone else", "en", nil, nil)
	require.NoError(t, err)

	const orders, perOrder = 3, 2
	var products []*models.Product
	for i := 0; i < orders*perOrder; i++ {
		p, err := repo.AddProduct(ctx, fmt.Sprintf("product %d", i), ptr("desc"), decimal.NewFromFloat(1.25).Mul(decimal.NewFromInt(int64(i+1))))
		require.NoError(t, err)
		products = append(products, p)
	}

	type line struct {
		order, product int64
		quantity       int
	}
	var want []line
	for o := 0; o < orders; o++ {
		order, err := repo.AddOrder(ctx, 1)
		require.NoError(t, err)
		for j := 0; j < perOrder; j++ {
			p := products[o*perOrder+j]
			require.NoError(t, repo.AddProductToOrder(ctx, order.OrderID, p.ProductID, o+j+1))
			want = append(want, line{order.OrderID, p.ProductID, o + j + 1})
		}
	}

	// Noise: another user's order and an order with no lines.
	other, err := repo.AddOrder(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, repo.AddProductToOrder(ctx, other.OrderID, products[0].ProductID, 9))
	_, err = repo.AddOrder(ctx, 1)
	require.NoError(t, err)

	rows, err := repo.GetAllUserOrders(ctx, 1)
	require.NoError(t, err)

	var got []line
	for _, row := range rows {
		assert.Equal(t, int64(1), row.User.TelegramID)
		assert.Equal(t, "Buyer", row.User.Fullname)
		require.NotNil(t, row.Order.UserID)
		assert.Equal(t, int64(1), *row.Order.UserID)
		assert.False(t, row.Product.Price.IsZero())
		got = append(got, line{row.Order.OrderID, row.Product.ProductID, row.Quantity})
	}
	assert.ElementsMatch(t, want, got)
}

func TestSelectAllInvitedUsers(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Root", "en", nil, nil)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 2, "Child A", "en", nil, ptr(int64(1)))
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 3, "Child B", "en", nil, ptr(int64(1)))
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 4, "Grandchild", "en", nil, ptr(int64(2)))
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 5, "Loner", "en", nil, nil)
	require.NoError(t, err)

	pairs, err := repo.SelectAllInvitedUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []repository.InvitedUser{
		{ParentName: "Root", ReferralName: "Child A"},
		{ParentName: "Root", ReferralName: "Child B"},
		{ParentName: "Child A", ReferralName: "Grandchild"},
	}, pairs)
}

func TestAddProductToOrderErrorsPropagate(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Buyer", "en", nil, nil)
	require.NoError(t, err)
	order, err := repo.AddOrder(ctx, 1)
	require.NoError(t, err)

	err = repo.AddProductToOrder(ctx, order.OrderID, 12345, 1)
	require.Error(t, err)
	assert.Equal(t, storeerr.ForeignKeyViolation, storeerr.CodeOf(err))

	product, err := repo.AddProduct(ctx, "Tea", nil, decimal.NewFromInt(2))
	require.NoError(t, err)
	require.NoError(t, repo.AddProductToOrder(ctx, order.OrderID, product.ProductID, 1))

	err = repo.AddProductToOrder(ctx, order.OrderID, product.ProductID, 5)
	require.Error(t, err)
	assert.True(t, storeerr.IsUniqueViolation(err))
}

func TestAddProductKeepsPrecision(t *testing.T) {
	repo, ctx := setup(t)

	price := decimal.RequireFromString("123456789012.3456")
	product, err := repo.AddProduct(ctx, "Gold", ptr("heavy"), price)
	require.NoError(t, err)

	products, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, product.ProductID, products[0].ProductID)
	assert.True(t, price.Equal(products[0].Price), products[0].Price.String())
}

func TestUpdatedAtRefreshedByDatabase(t *testing.T) {
	repo, ctx := setup(t)

	product, err := repo.AddProduct(ctx, "Tea", nil, decimal.NewFromInt(1))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, testDB.Exec("UPDATE products SET title = ? WHERE product_id = ?", "Green tea", product.ProductID).Error)

	var reloaded models.Product
	require.NoError(t, testDB.Take(&reloaded, "product_id = ?", product.ProductID).Error)
	assert.True(t, reloaded.UpdatedAt.After(product.UpdatedAt))
	assert.True(t, reloaded.CreatedAt.Equal(product.CreatedAt))
}

func TestGetReferralsSince(t *testing.T) {
	repo, ctx := setup(t)

	_, err := repo.AddUser(ctx, 1, "Root", "en", nil, nil)
	require.NoError(t, err)
	old, err := repo.AddUser(ctx, 2, "Early", "en", nil, ptr(int64(1)))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	since := time.Now()
	time.Sleep(10 * time.Millisecond)

	_, err = repo.AddUser(ctx, 3, "Late", "en", nil, ptr(int64(1)))
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, 4, "Unreferred", "en", nil, nil)
	require.NoError(t, err)

	users, err := repo.GetReferralsSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(3), users[0].TelegramID)

	users, err = repo.GetReferralsSince(ctx, old.CreatedAt)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestGetProductByID(t *testing.T) {
	repo, ctx := setup(t)

	created, err := repo.AddProduct(ctx, "Tea", ptr("green"), decimal.RequireFromString("2.25"))
	require.NoError(t, err)

	got, err := repo.GetProductByID(ctx, created.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Tea", got.Title)
	assert.True(t, created.Price.Equal(got.Price))

	missing, err := repo.GetProductByID(ctx, created.ProductID+1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
