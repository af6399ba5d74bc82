package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cardline/backend/internal/service/accounts"
)

type fakeAccounts struct {
	verifyCalls int
	waiverCalls int
	lastLast4   string
}

func (f *fakeAccounts) VerifyCustomer(_ context.Context, customerID, _ string) (*accounts.VerificationResult, error) {
	f.verifyCalls++
	return &accounts.VerificationResult{Verified: true, Customer: &accounts.CustomerIdentity{CustomerID: customerID}}, nil
}

func (f *fakeAccounts) RequestFeeWaiver(_ context.Context, _, cardLast4, feeType, _ string) (*accounts.FeeWaiverResult, error) {
	f.waiverCalls++
	f.lastLast4 = cardLast4
	return &accounts.FeeWaiverResult{CardLast4: cardLast4, FeeType: feeType, Approved: true}, nil
}

func (f *fakeAccounts) ReportFraudAlert(_ context.Context, _, cardLast4, _ string) (*accounts.FraudAlertResult, error) {
	return &accounts.FraudAlertResult{CaseID: "fraud_1", CardLast4: cardLast4}, nil
}

func (f *fakeAccounts) OpenBillingDispute(_ context.Context, _, _, _ string, _ float64, _, _ string) (*accounts.DisputeResult, error) {
	return &accounts.DisputeResult{DisputeID: "disp_1", ExpectedWindowDays: 10}, nil
}

func (f *fakeAccounts) EscalateToHuman(_ context.Context, _, _ string) (*accounts.EscalationResult, error) {
	return &accounts.EscalationResult{Escalated: true}, nil
}

func post(t *testing.T, fake *fakeAccounts, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	handler := New(fake)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/telephony/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestFunctionCallDispatch(t *testing.T) {
	fake := &fakeAccounts{}
	resp := post(t, fake, map[string]interface{}{
		"message": map[string]interface{}{
			"type": "function-call",
			"functionCall": map[string]interface{}{
				"name": "request_fee_waiver",
				"parameters": map[string]interface{}{
					"customerId": "cust_001",
					"cardLast4":  "4242",
					"feeType":    "annual",
				},
			},
		},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if fake.waiverCalls != 1 {
		t.Fatalf("expected one waiver call, got %d", fake.waiverCalls)
	}
	if fake.lastLast4 != "4242" {
		t.Fatalf("arguments not forwarded: %s", fake.lastLast4)
	}

	var body struct {
		Result accounts.FeeWaiverResult `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Result.Approved {
		t.Fatal("expected approved result")
	}
}

func TestUnknownFunction(t *testing.T) {
	resp := post(t, &fakeAccounts{}, map[string]interface{}{
		"message": map[string]interface{}{
			"type":         "function-call",
			"functionCall": map[string]interface{}{"name": "transfer_funds"},
		},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMissingMessage(t *testing.T) {
	resp := post(t, &fakeAccounts{}, map[string]interface{}{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStatusEventsAcknowledged(t *testing.T) {
	for _, eventType := range []string{"status-update", "end-of-call-report", "hang", "speech-update", "transcript"} {
		resp := post(t, &fakeAccounts{}, map[string]interface{}{
			"message": map[string]interface{}{"type": eventType, "status": "in-progress"},
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", eventType, resp.Code)
		}
	}
}
