package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"kavyalok/models"
	"kavyalok/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	testPayUKey  = "gtKFFx"
	testPayUSalt = "eCwWELxi"
)

var testPages = PaymentPages{
	Success: "https://kavyalok.in/competitions/success",
	Failure: "https://kavyalok.in/competitions/failure",
}

func newCompetitionFixture(t *testing.T) (*fixture, *CompetitionService, *models.Competition) {
	t.Helper()
	f := newFixture(t)
	payu := payments.NewPayU(testPayUKey, testPayUSalt, "https://test.payu.in/_payment",
		"https://api.kavyalok.in/api/payments/callback")
	svc := NewCompetitionService(f.store, f.store, payu, testPages, f.mailer)

	c := &models.Competition{
		ID:           primitive.NewObjectID(),
		Title:        "Monsoon Verses",
		Fee:          "199.00",
		Deadline:     time.Now().Add(72 * time.Hour),
		Participants: []string{},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.store.CreateCompetition(context.Background(), c))
	return f, svc, c
}

// callbackForm signs a PayU callback the way the gateway does.
func callbackForm(req *payments.Request, status string) url.Values {
	payu := payments.NewPayU(testPayUKey, testPayUSalt, "", "")
	resp := payments.Response{
		Status:      status,
		TxnID:       req.TxnID,
		Amount:      req.Amount,
		ProductInfo: req.ProductInfo,
		FirstName:   req.FirstName,
		Email:       req.Email,
		UDF:         [5]string{req.UDF1},
	}
	return url.Values{
		"status":      {status},
		"txnid":       {req.TxnID},
		"amount":      {req.Amount},
		"productinfo": {req.ProductInfo},
		"firstname":   {req.FirstName},
		"email":       {req.Email},
		"udf1":        {req.UDF1},
		"mihpayid":    {"403993715521"},
		"key":         {testPayUKey},
		"hash":        {payu.ResponseHash(resp)},
	}
}

func settlePayment(t *testing.T, f *fixture, c *models.Competition, email string) {
	t.Helper()
	require.NoError(t, f.store.CreatePayment(context.Background(), &models.Payment{
		TxnID:         newTxnID(),
		Email:         email,
		CompetitionID: c.ID,
		Amount:        c.Fee,
		Status:        models.PaymentSuccess,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}))
}

func TestRegisterPaidCompetitionNeedsSettledPayment(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")

	for _, status := range []models.PaymentStatus{models.PaymentPending, models.PaymentFailure} {
		require.NoError(t, f.store.CreatePayment(ctx, &models.Payment{
			TxnID: newTxnID(), Email: asha.Email, CompetitionID: c.ID, Amount: c.Fee, Status: status,
		}))
	}
	settlePayment(t, f, c, ravi.Email)

	assert.ErrorIs(t, svc.Register(ctx, asha.Email, c.ID.Hex()), ErrForbidden)
	require.NoError(t, svc.Register(ctx, ravi.Email, c.ID.Hex()))

	stored, err := f.store.GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ravi.Email}, stored.Participants)
}

func TestRegisterFreeCompetition(t *testing.T) {
	f, svc, _ := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	for _, fee := range []string{"", "0", "0.00"} {
		free := &models.Competition{ID: primitive.NewObjectID(), Title: "Open Mic", Fee: fee, Participants: []string{}}
		require.NoError(t, f.store.CreateCompetition(ctx, free))
		require.NoError(t, svc.Register(ctx, asha.Email, free.ID.Hex()), "fee %q", fee)
	}
}

func TestCompetitionRegisterIsIdempotent(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	assert.ErrorIs(t, svc.Register(ctx, asha.Email, c.ID.Hex()), ErrForbidden)
	settlePayment(t, f, c, asha.Email)

	require.NoError(t, svc.Register(ctx, asha.Email, c.ID.Hex()))
	require.NoError(t, svc.Register(ctx, asha.Email, c.ID.Hex()))

	stored, err := f.store.GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{asha.Email}, stored.Participants)

	assert.ErrorIs(t, svc.Register(ctx, asha.Email, primitive.NewObjectID().Hex()), ErrNotFound)
	assert.ErrorIs(t, svc.Register(ctx, asha.Email, "bad"), ErrValidation)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPaymentSuccessFlow(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	req, err := svc.InitiatePayment(ctx, asha.Email, c.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, req.TxnID, 20)
	assert.Equal(t, "199.00", req.Amount)
	assert.Equal(t, c.ID.Hex(), req.UDF1)
	assert.Equal(t, "asha", req.FirstName)
	assert.Len(t, req.Hash, 128)

	pending, err := f.store.GetPaymentByTxnID(ctx, req.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, pending.Status)

	redirect, err := svc.HandleCallback(ctx, callbackForm(req, payments.StatusSuccess))
	require.NoError(t, err)
	assert.Equal(t, "https://kavyalok.in/competitions/success?txnid="+req.TxnID, redirect)

	paid, err := f.store.GetPaymentByTxnID(ctx, req.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, paid.Status)
	assert.Equal(t, "403993715521", paid.GatewayID)

	stored, err := f.store.GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{asha.Email}, stored.Participants)

	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].Subject, "Monsoon Verses")

	// A replayed callback is answered from the stored status.
	again, err := svc.HandleCallback(ctx, callbackForm(req, payments.StatusSuccess))
	require.NoError(t, err)
	assert.Equal(t, redirect, again)
	assert.Len(t, f.mailer.sent, 1)

	_, err = svc.InitiatePayment(ctx, asha.Email, c.ID.Hex())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPaymentFailureFlow(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	req, err := svc.InitiatePayment(ctx, asha.Email, c.ID.Hex())
	require.NoError(t, err)

	redirect, err := svc.HandleCallback(ctx, callbackForm(req, payments.StatusFailure))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(redirect, "https://kavyalok.in/competitions/failure?txnid="))

	stored, err := f.store.GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Participants)
	assert.Empty(t, f.mailer.sent)
}

func TestPaymentCallbackRejections(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	req, err := svc.InitiatePayment(ctx, asha.Email, c.ID.Hex())
	require.NoError(t, err)

	forged := callbackForm(req, payments.StatusSuccess)
	forged.Set("status", "success")
	forged.Set("hash", strings.Repeat("0", 128))
	_, err = svc.HandleCallback(ctx, forged)
	assert.ErrorIs(t, err, ErrValidation)

	cheap := *req
	cheap.Amount = "1.00"
	_, err = svc.HandleCallback(ctx, callbackForm(&cheap, payments.StatusSuccess))
	assert.ErrorIs(t, err, ErrValidation)

	unknown := *req
	unknown.TxnID = "doesnotexist"
	_, err = svc.HandleCallback(ctx, callbackForm(&unknown, payments.StatusSuccess))
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.store.GetPaymentByTxnID(ctx, req.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)
}

func TestInitiatePaymentChecks(t *testing.T) {
	f, svc, c := newCompetitionFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	closed := &models.Competition{
		ID:       primitive.NewObjectID(),
		Title:    "Winter Haiku",
		Fee:      "99.00",
		Deadline: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.store.CreateCompetition(ctx, closed))
	_, err := svc.InitiatePayment(ctx, asha.Email, closed.ID.Hex())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.InitiatePayment(ctx, asha.Email, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	disabled := NewCompetitionService(f.store, f.store, nil, testPages, f.mailer)
	_, err = disabled.InitiatePayment(ctx, asha.Email, c.ID.Hex())
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestSameAmount(t *testing.T) {
	assert.True(t, sameAmount("199", "199.00"))
	assert.True(t, sameAmount(" 199.0", "199.00"))
	assert.False(t, sameAmount("199.00", "19.90"))
	assert.False(t, sameAmount("abc", "abc"))
}
