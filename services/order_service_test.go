package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/duckieducksrgood/winchpoint/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutIn(total string, ids ...uint) *CheckoutIn {
	return &CheckoutIn{
		CartItemIDs:     ids,
		TotalPrice:      dec(total),
		PaymentMethod:   "GCASH",
		DeliveryAddress: "12 Trail Rd",
		ProofOfPayment:  "proof_of_payment/abc.png",
	}
}

func TestCheckoutDecrementsStockAndSnapshotsItems(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "ana", entity.RoleCustomer)
	p := seedProduct(t, f.db, "Winch 12k", "499.50", 5)

	line, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	res, err := f.orders.Checkout(ctx, u.ID, checkoutIn("999", line.ID))
	require.NoError(t, err)
	assert.Equal(t, "999", res.TotalPrice.String())
	assert.Equal(t, 3, stockOf(t, f.db, p.ID))

	o, err := f.orders.Detail(customer(u), res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Winch 12k", o.Items[0].ProductName)
	assert.Equal(t, "499.5", o.Items[0].Price.String())
	assert.Equal(t, 2, o.Items[0].Quantity)

	v, err := f.cart.Get(u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Cart.Items, "checked out lines leave the cart")

	assert.Equal(t, []string{EventOrderStatusChanged}, f.events.names())
}

func TestCheckoutOnlyTakesSelectedLines(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "ben", entity.RoleCustomer)
	a := seedProduct(t, f.db, "Shackle", "20.00", 10)
	b := seedProduct(t, f.db, "Strap", "15.00", 10)

	la, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.cart.Add(u.ID, &AddToCartIn{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.orders.Checkout(context.Background(), u.ID, checkoutIn("20", la.ID))
	require.NoError(t, err)

	v, err := f.cart.Get(u.ID)
	require.NoError(t, err)
	require.Len(t, v.Cart.Items, 1)
	assert.Equal(t, b.ID, v.Cart.Items[0].ProductID)
	assert.Equal(t, 10, stockOf(t, f.db, b.ID))
}

func TestCheckoutMissingFieldsListsEveryField(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "cy", entity.RoleCustomer)

	_, err := f.orders.Checkout(context.Background(), u.ID, &CheckoutIn{})
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
	assert.ElementsMatch(t,
		[]string{"cartItemIds", "totalPrice", "paymentMethod", "deliveryAddress", "proofOfPayment"},
		se.Fields)
}

func TestCheckoutWithoutCartOrSelectionCreatesNoOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "dee", entity.RoleCustomer)
	other := seedUser(t, f.db, "eve", entity.RoleCustomer)
	p := seedProduct(t, f.db, "Light bar", "100.00", 4)

	_, err := f.orders.Checkout(ctx, u.ID, checkoutIn("100", 1))
	assert.True(t, IsKind(err, KindNotFound), "no cart yet")

	_, err = f.cart.Get(u.ID)
	require.NoError(t, err)
	otherLine, err := f.cart.Add(other.ID, &AddToCartIn{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	// someone else's cart line is not a valid selection
	_, err = f.orders.Checkout(ctx, u.ID, checkoutIn("100", otherLine.ID))
	assert.True(t, IsKind(err, KindValidation))

	var orders int64
	require.NoError(t, f.db.Model(&entity.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Equal(t, 4, stockOf(t, f.db, p.ID))
	assert.Empty(t, f.events.names())
}

func TestCheckoutTotalMismatchRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "fay", entity.RoleCustomer)
	p := seedProduct(t, f.db, "Jack", "80.00", 4)
	line, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.orders.Checkout(context.Background(), u.ID, checkoutIn("1", line.ID))
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, 4, stockOf(t, f.db, p.ID))

	v, err := f.cart.Get(u.ID)
	require.NoError(t, err)
	assert.Len(t, v.Cart.Items, 1)
}

func TestCheckoutInsufficientStockRollsBackEverything(t *testing.T) {
	f := newOrderFixture(t)
	u := seedUser(t, f.db, "gus", entity.RoleCustomer)
	a := seedProduct(t, f.db, "Winch", "100.00", 5)
	b := seedProduct(t, f.db, "Rope", "10.00", 5)

	la, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)
	lb, err := f.cart.Add(u.ID, &AddToCartIn{ProductID: b.ID, Quantity: 3})
	require.NoError(t, err)

	// stock drops after the line was added
	require.NoError(t, f.db.Model(&entity.Product{}).Where("id = ?", b.ID).Update("stock", 2).Error)

	_, err = f.orders.Checkout(context.Background(), u.ID, checkoutIn("130", la.ID, lb.ID))
	require.True(t, IsKind(err, KindConflict), "got %v", err)

	assert.Equal(t, 5, stockOf(t, f.db, a.ID), "first line's decrement is rolled back")
	assert.Equal(t, 2, stockOf(t, f.db, b.ID))

	var orders, items int64
	require.NoError(t, f.db.Model(&entity.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&entity.OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)

	v, err := f.cart.Get(u.ID)
	require.NoError(t, err)
	assert.Len(t, v.Cart.Items, 2)
}

func TestCheckoutLastUnitExactlyOneWins(t *testing.T) {
	f := newOrderFixture(t)
	p := seedProduct(t, f.db, "Last winch", "300.00", 1)

	const buyers = 4
	lines := make([]uint, buyers)
	users := make([]*entity.User, buyers)
	for i := range users {
		users[i] = seedUser(t, f.db, fmt.Sprintf("buyer%d", i), entity.RoleCustomer)
		line, err := f.cart.Add(users[i].ID, &AddToCartIn{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		lines[i] = line.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.orders.Checkout(context.Background(), users[i].ID, checkoutIn("300", lines[i]))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case IsKind(err, KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, buyers-1, conflicts)
	assert.Equal(t, 0, stockOf(t, f.db, p.ID))
}

func TestOrderListAndDetailScopedToOwner(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	ana := seedUser(t, f.db, "ana", entity.RoleCustomer)
	ben := seedUser(t, f.db, "ben", entity.RoleCustomer)
	admin := seedUser(t, f.db, "boss", entity.RoleAdmin)
	p := seedProduct(t, f.db, "Winch", "10.00", 10)

	la, err := f.cart.Add(ana.ID, &AddToCartIn{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	res, err := f.orders.Checkout(ctx, ana.ID, checkoutIn("10", la.ID))
	require.NoError(t, err)
	lb, err := f.cart.Add(ben.ID, &AddToCartIn{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, ben.ID, checkoutIn("10", lb.ID))
	require.NoError(t, err)

	mine, err := f.orders.List(customer(ana), "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)

	all, err := f.orders.List(customer(admin), "pending", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
	assert.Equal(t, 20, all.Limit)

	for _, limit := range []int{0, -5, 500} {
		out, err := f.orders.List(customer(admin), "", 0, limit)
		require.NoError(t, err)
		assert.Equal(t, 50, out.Limit, "limit %d reports the size used", limit)
		assert.Equal(t, 1, out.Page)
		assert.Len(t, out.Items, 2)
	}

	_, err = f.orders.List(customer(admin), "shipped", 1, 20)
	assert.True(t, IsKind(err, KindValidation))

	_, err = f.orders.Detail(customer(ben), res.ID)
	assert.True(t, IsKind(err, KindNotFound))
}
