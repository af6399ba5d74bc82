package accounts

import (
	"context"
	"testing"

	"github.com/cardline/backend/internal/model/customer"
)

type memoryStore struct {
	customers map[string]*customer.Customer
	saves     int
}

func newMemoryStore(customers ...*customer.Customer) *memoryStore {
	m := &memoryStore{customers: make(map[string]*customer.Customer)}
	for _, c := range customers {
		m.customers[c.ID] = c
	}
	return m
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memoryStore) Save(_ context.Context, updated *customer.Customer) error {
	clone := *updated
	m.customers[updated.ID] = &clone
	m.saves++
	return nil
}

func (m *memoryStore) ListCards(ctx context.Context, id string) ([]customer.Card, error) {
	c, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Cards, nil
}

func testCustomer() *customer.Customer {
	return &customer.Customer{
		ID:       "cust_001",
		FullName: "Dana Mitchell",
		Last4SSN: "4821",
		Cards: []customer.Card{
			{Last4: "4242", Issuer: "Visa", AnnualFee: 95, LateFeesYtd: 35},
		},
		Transactions: []customer.Transaction{
			{TransactionID: "tx_1", CardLast4: "4242", Merchant: "Acme Corp", Amount: 45},
		},
	}
}

func TestVerifyCustomer(t *testing.T) {
	svc := NewService(newMemoryStore(testCustomer()))
	ctx := context.Background()

	got, err := svc.VerifyCustomer(ctx, "cust_001", "4821")
	if err != nil {
		t.Fatalf("VerifyCustomer err: %v", err)
	}
	if !got.Verified || got.Reason != "ok" {
		t.Fatalf("expected verified, got %+v", got)
	}
	if got.Customer == nil || got.Customer.FullName != "Dana Mitchell" {
		t.Fatalf("expected customer identity, got %+v", got.Customer)
	}

	mismatch, err := svc.VerifyCustomer(ctx, "cust_001", "0000")
	if err != nil {
		t.Fatalf("VerifyCustomer err: %v", err)
	}
	if mismatch.Verified || mismatch.Reason != "mismatch" {
		t.Fatalf("expected mismatch, got %+v", mismatch)
	}

	missing, err := svc.VerifyCustomer(ctx, "cust_404", "4821")
	if err != nil {
		t.Fatalf("VerifyCustomer err: %v", err)
	}
	if missing.Verified || missing.Reason != "customer_not_found" {
		t.Fatalf("expected customer_not_found, got %+v", missing)
	}
}

func TestRequestFeeWaiverAnnualApproved(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)

	got, err := svc.RequestFeeWaiver(context.Background(), "cust_001", "4242", "annual", "requested")
	if err != nil {
		t.Fatalf("RequestFeeWaiver err: %v", err)
	}
	if !got.Approved {
		t.Fatal("expected approval for card with annual fee")
	}
	if got.WaiverAmount != 95 {
		t.Fatalf("expected waiver of 95, got %v", got.WaiverAmount)
	}
	if store.saves != 0 {
		t.Fatalf("annual waiver should not mutate the record, saves=%d", store.saves)
	}
}

func TestRequestFeeWaiverAnnualCap(t *testing.T) {
	c := testCustomer()
	c.Cards[0].AnnualFee = 550
	svc := NewService(newMemoryStore(c))

	got, err := svc.RequestFeeWaiver(context.Background(), "cust_001", "4242", "annual", "")
	if err != nil {
		t.Fatalf("RequestFeeWaiver err: %v", err)
	}
	if got.WaiverAmount != 200 {
		t.Fatalf("expected capped waiver of 200, got %v", got.WaiverAmount)
	}
}

func TestRequestFeeWaiverLateDebitsCard(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.RequestFeeWaiver(ctx, "cust_001", "4242", "late", "")
	if err != nil {
		t.Fatalf("RequestFeeWaiver err: %v", err)
	}
	if !got.Approved || got.WaiverAmount != 35 {
		t.Fatalf("expected approved late waiver of 35, got %+v", got)
	}

	reloaded, _ := store.GetByID(ctx, "cust_001")
	if reloaded.Cards[0].LateFeesYtd != 0 {
		t.Fatalf("expected late fees cleared, got %v", reloaded.Cards[0].LateFeesYtd)
	}
}

func TestRequestFeeWaiverMixedCaseFeeType(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)

	got, err := svc.RequestFeeWaiver(context.Background(), "cust_001", "4242", "Late", "")
	if err != nil {
		t.Fatalf("RequestFeeWaiver err: %v", err)
	}
	if !got.Approved || got.WaiverAmount != 35 {
		t.Fatalf("expected approved late waiver of 35, got %+v", got)
	}
	if got.FeeType != "late" {
		t.Fatalf("expected normalized fee type, got %s", got.FeeType)
	}
}

func TestRequestFeeWaiverDenied(t *testing.T) {
	c := testCustomer()
	c.Cards[0].AnnualFee = 0
	svc := NewService(newMemoryStore(c))

	got, err := svc.RequestFeeWaiver(context.Background(), "cust_001", "4242", "annual", "")
	if err != nil {
		t.Fatalf("RequestFeeWaiver err: %v", err)
	}
	if got.Approved || got.WaiverAmount != 0 {
		t.Fatalf("expected denial, got %+v", got)
	}
}

func TestRequestFeeWaiverUnknownCard(t *testing.T) {
	svc := NewService(newMemoryStore(testCustomer()))

	if _, err := svc.RequestFeeWaiver(context.Background(), "cust_001", "0000", "annual", ""); err == nil {
		t.Fatal("expected error for unknown card")
	}
}

func TestReportFraudAlertLocksCard(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.ReportFraudAlert(ctx, "cust_001", "4242", "someone in another city used my card")
	if err != nil {
		t.Fatalf("ReportFraudAlert err: %v", err)
	}
	if got.CaseID == "" || !got.TemporaryLockApplied {
		t.Fatalf("expected case with lock, got %+v", got)
	}

	reloaded, _ := store.GetByID(ctx, "cust_001")
	if !reloaded.Cards[0].FraudLocked {
		t.Fatal("expected card fraud lock to persist")
	}
}

func TestOpenBillingDispute(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.OpenBillingDispute(ctx, "cust_001", "4242", "Acme Corp", 89.99, "2026-08-31", "double charge")
	if err != nil {
		t.Fatalf("OpenBillingDispute err: %v", err)
	}
	if got.DisputeID == "" || got.ExpectedWindowDays != 10 {
		t.Fatalf("unexpected dispute result: %+v", got)
	}
	if !got.TemporaryCreditLikely {
		t.Fatal("expected temporary credit for amount >= 50")
	}

	reloaded, _ := store.GetByID(ctx, "cust_001")
	if len(reloaded.OpenDisputes) != 1 {
		t.Fatalf("expected 1 open dispute, got %d", len(reloaded.OpenDisputes))
	}
	if reloaded.OpenDisputes[0].Status != "submitted" {
		t.Fatalf("unexpected dispute status: %s", reloaded.OpenDisputes[0].Status)
	}
}

func TestFlagTransaction(t *testing.T) {
	store := newMemoryStore(testCustomer())
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.FlagTransaction(ctx, "cust_001", "tx_1", "")
	if err != nil {
		t.Fatalf("FlagTransaction err: %v", err)
	}
	if !got.Flagged || !got.TemporaryLockApplied {
		t.Fatalf("unexpected flag result: %+v", got)
	}

	reloaded, _ := store.GetByID(ctx, "cust_001")
	if !reloaded.Transactions[0].Flagged || reloaded.Transactions[0].FlagReason != "customer_reported" {
		t.Fatalf("expected flagged transaction, got %+v", reloaded.Transactions[0])
	}
	if !reloaded.Cards[0].FraudLocked {
		t.Fatal("expected related card fraud lock")
	}
}
