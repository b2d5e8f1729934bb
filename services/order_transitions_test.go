package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeOrder checks out qty units of a fresh product for u.
func placeOrder(t *testing.T, f *orderFixture, u *entity.User, stock, qty int) (uint, *entity.Product) {
	t.Helper()
	p := seedProduct(t, f.db, "Winch "+u.Username, "100.00", stock)
	line, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: p.ID, Quantity: qty})
	require.NoError(t, err)
	res, err := f.orders.Checkout(context.Background(), u.ID, checkoutIn(fmt.Sprint(100*qty), line.ID))
	require.NoError(t, err)
	f.events.reset()
	return res.ID, p
}

func TestCancelRestoresStockAndNotifies(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "ana", entity.RoleCustomer)
	orderID, p := placeOrder(t, f, u, 5, 2)
	require.Equal(t, 3, stockOf(t, f.db, p.ID))

	o, err := f.orders.Cancel(context.Background(), customer(u), orderID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, o.Status)
	assert.Equal(t, 5, stockOf(t, f.db, p.ID))
	assert.ElementsMatch(t, []string{EventOrderCancelled, EventOrderStatusChanged}, f.events.names())

	// cancelling again is a no-op and must not restock twice
	_, err = f.orders.Cancel(context.Background(), customer(u), orderID)
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, f.db, p.ID))
}

func TestCancelSkipsDeletedProducts(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "ben", entity.RoleCustomer)
	admin := seedUser(t, f.db, "boss", entity.RoleAdmin)
	orderID, p := placeOrder(t, f, u, 5, 1)

	catalog := NewCatalogService(f.db, repository.NewProductRepository(f.db), repository.NewCategoryRepository(f.db))
	require.NoError(t, catalog.DeleteProduct(p.ID))

	o, err := f.orders.Cancel(context.Background(), customer(admin), orderID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Nil(t, o.Items[0].ProductID)
	assert.Equal(t, "Winch ben", o.Items[0].ProductName, "snapshot survives product deletion")
}

func TestCustomerMayOnlyCancelPendingOwnOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "cy", entity.RoleCustomer)
	stranger := seedUser(t, f.db, "dee", entity.RoleCustomer)
	admin := seedUser(t, f.db, "boss", entity.RoleAdmin)
	orderID, _ := placeOrder(t, f, u, 5, 1)

	_, err := f.orders.Update(ctx, customer(u), orderID, &OrderUpdateIn{Status: strp("Processing")})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = f.orders.Update(ctx, customer(u), orderID, &OrderUpdateIn{TrackingNumber: strp("TRK1")})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = f.orders.Cancel(ctx, customer(stranger), orderID)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.orders.Update(ctx, customer(admin), orderID, &OrderUpdateIn{Status: strp("Processing")})
	require.NoError(t, err)

	_, err = f.orders.Cancel(ctx, customer(u), orderID)
	assert.True(t, IsKind(err, KindValidation), "processing orders are admin-only")
}

func TestAdminTransitionsFollowTable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "eve", entity.RoleCustomer)
	admin := customer(seedUser(t, f.db, "boss", entity.RoleAdmin))
	orderID, p := placeOrder(t, f, u, 5, 1)

	o, err := f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{Status: strp("Completed"), TrackingNumber: strp("LBC-123")})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, o.Status)
	assert.Equal(t, "LBC-123", o.TrackingNumber)
	assert.ElementsMatch(t, []string{EventOrderStatusChanged, EventOrderTrackingUpdate}, f.events.names())

	_, err = f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{Status: strp("Cancelled")})
	assert.True(t, IsKind(err, KindValidation), "completed is terminal")
	assert.Equal(t, 4, stockOf(t, f.db, p.ID))

	_, err = f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{Status: strp("Shipped")})
	assert.True(t, IsKind(err, KindValidation))
}

func TestSameStatusUpdateKeepsStatusAndAppliesFields(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "fay", entity.RoleCustomer)
	admin := customer(seedUser(t, f.db, "boss", entity.RoleAdmin))
	orderID, _ := placeOrder(t, f, u, 5, 1)

	o, err := f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{Status: strp("Pending"), PaymentMethod: strp("Bank")})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, o.Status)
	assert.Equal(t, "Bank", o.PaymentMethod)
	assert.Empty(t, f.events.names())
}

func TestRefundFieldsOnlyOnCancelledOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "gus", entity.RoleCustomer)
	admin := customer(seedUser(t, f.db, "boss", entity.RoleAdmin))
	orderID, _ := placeOrder(t, f, u, 5, 1)

	_, err := f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{RefundStatus: strp("Pending")})
	assert.True(t, IsKind(err, KindValidation))

	o, err := f.orders.Update(ctx, admin, orderID, &OrderUpdateIn{
		Status:       strp("Cancelled"),
		RefundStatus: strp("Refunded"),
		RefundProof:  strp("refund_proofs/r.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RefundRefunded, o.RefundStatus)
	assert.Equal(t, "refund_proofs/r.png", o.RefundProof)
	assert.NotNil(t, o.RefundDate, "refunded orders get a refund date")
	assert.Contains(t, f.events.names(), EventOrderRefundChanged)
}
