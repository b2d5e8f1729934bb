package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/duckieducksrgood/winchpoint/configs"
	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. One connection keeps
// concurrent transactions serialised the way a row lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, configs.Migrate(db))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []outbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e outbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

func seedUser(t *testing.T, db *gorm.DB, username string, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "x",
		FirstName: "Test",
		LastName:  username,
		Role:      role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *entity.Product {
	t.Helper()
	var cat entity.Category
	require.NoError(t, db.Where(entity.Category{Name: "Winches"}).FirstOrCreate(&cat).Error)
	p := &entity.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: cat.ID,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p entity.Product
	require.NoError(t, db.Unscoped().First(&p, id).Error)
	return p.Stock
}

type orderFixture struct {
	db     *gorm.DB
	events *recordingPublisher
	cart   *CartService
	orders *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	return &orderFixture{
		db:     db,
		events: pub,
		cart:   NewCartService(db, cartRepo, productRepo),
		orders: NewOrderService(db, repository.NewOrderRepository(db), cartRepo, productRepo, pub, nil),
	}
}

func customer(u *entity.User) Actor { return Actor{UserID: u.ID, Role: u.Role} }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strp(s string) *string { return &s }
