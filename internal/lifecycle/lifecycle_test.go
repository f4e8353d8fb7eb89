package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/proposal-service/internal/models"

	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

func newDraft(t *testing.T) *models.Proposal {
	t.Helper()
	p, err := New(models.ProposalRequest{
		CounterpartyID:   "org_001",
		CounterpartyName: "Acme Builders",
		CounterpartyRole: models.GeneralContractor,
		SubjectName:      "Kitchen remodel",
		Location:         "Austin, TX",
		Category:         models.Construction,
	}, baseTime)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return p
}

func items(prices ...string) []models.ProposalItemRequest {
	reqs := make([]models.ProposalItemRequest, 0, len(prices))
	for i, price := range prices {
		reqs = append(reqs, models.ProposalItemRequest{
			Name:      "item " + string(rune('A'+i)),
			UnitPrice: decimal.RequireFromString(price),
		})
	}
	return reqs
}

func TestNew(t *testing.T) {
	p := newDraft(t)

	if p.Status != models.DraftProposal {
		t.Errorf("New() status = %v, want %v", p.Status, models.DraftProposal)
	}
	if !p.TotalAmount.IsZero() {
		t.Errorf("New() totalAmount = %v, want 0", p.TotalAmount)
	}
	if !p.CreatedAt.Equal(baseTime) {
		t.Errorf("New() createdAt = %v, want %v", p.CreatedAt, baseTime)
	}
	if p.SubmittedAt != nil || p.ResolvedAt != nil {
		t.Error("New() must not set submittedAt or resolvedAt")
	}
	if p.ID == "" {
		t.Error("New() returned empty ID")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  models.ProposalRequest
	}{
		{
			name: "missing counterparty",
			req:  models.ProposalRequest{CounterpartyName: "Acme", CounterpartyRole: models.Supplier, SubjectName: "Lumber", Category: models.Delivery},
		},
		{
			name: "missing subject",
			req:  models.ProposalRequest{CounterpartyID: "org_1", CounterpartyName: "Acme", CounterpartyRole: models.Supplier, Category: models.Delivery},
		},
		{
			name: "unknown role",
			req:  models.ProposalRequest{CounterpartyID: "org_1", CounterpartyName: "Acme", CounterpartyRole: "architect", SubjectName: "Lumber", Category: models.Delivery},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.req, baseTime); err == nil {
				t.Error("New() expected error, got nil")
			}
		})
	}
}

func TestEditItems_TotalAlwaysInSync(t *testing.T) {
	p := newDraft(t)

	steps := []struct {
		prices    []string
		wantTotal string
	}{
		{prices: []string{"100", "250"}, wantTotal: "350"},
		{prices: []string{"0.1", "0.2"}, wantTotal: "0.3"},
		{prices: []string{"19.99", "0.01", "1000000.005"}, wantTotal: "1000020.005"},
		{prices: []string{"0"}, wantTotal: "0"},
		{prices: nil, wantTotal: "0"},
	}

	for _, step := range steps {
		if err := EditItems(p, items(step.prices...)); err != nil {
			t.Fatalf("EditItems(%v) unexpected error: %v", step.prices, err)
		}
		want := decimal.RequireFromString(step.wantTotal)
		if !p.TotalAmount.Equal(want) {
			t.Errorf("EditItems(%v) totalAmount = %v, want %v", step.prices, p.TotalAmount, want)
		}
		if !p.TotalAmount.Equal(Total(p.Items)) {
			t.Errorf("totalAmount %v out of sync with items sum %v", p.TotalAmount, Total(p.Items))
		}
		if len(p.Items) != len(step.prices) {
			t.Errorf("EditItems(%v) items = %d, want %d", step.prices, len(p.Items), len(step.prices))
		}
	}
}

func TestEditItems_KeepsExistingIDs(t *testing.T) {
	p := newDraft(t)
	if err := EditItems(p, items("10", "20")); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}
	keptID := p.Items[1].ID

	reqs := []models.ProposalItemRequest{
		{ID: keptID, Name: "renamed", UnitPrice: decimal.NewFromInt(25)},
		{Name: "new", UnitPrice: decimal.NewFromInt(5)},
	}
	if err := EditItems(p, reqs); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}

	if p.Items[0].ID != keptID {
		t.Errorf("EditItems() item id = %v, want %v", p.Items[0].ID, keptID)
	}
	if p.Items[1].ID == "" || p.Items[1].ID == keptID {
		t.Errorf("EditItems() new item got id %q", p.Items[1].ID)
	}
	if !p.TotalAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("EditItems() totalAmount = %v, want 30", p.TotalAmount)
	}
}

func TestEditItems_RejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name string
		reqs []models.ProposalItemRequest
	}{
		{
			name: "negative price",
			reqs: []models.ProposalItemRequest{{Name: "refund", UnitPrice: decimal.RequireFromString("-0.01")}},
		},
		{
			name: "unknown id",
			reqs: []models.ProposalItemRequest{{ID: "missing", Name: "x", UnitPrice: decimal.NewFromInt(1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newDraft(t)
			if err := EditItems(p, items("100")); err != nil {
				t.Fatalf("EditItems() unexpected error: %v", err)
			}
			before := p.Clone()

			err := EditItems(p, tt.reqs)
			if !errors.Is(err, models.ErrInvalidItem) {
				t.Fatalf("EditItems() error = %v, want ErrInvalidItem", err)
			}
			if len(p.Items) != 1 || p.Items[0].ID != before.Items[0].ID || !p.TotalAmount.Equal(before.TotalAmount) {
				t.Error("EditItems() mutated proposal on failure")
			}
		})
	}
}

func TestEditItems_DuplicateIDs(t *testing.T) {
	p := newDraft(t)
	if err := EditItems(p, items("1")); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}
	id := p.Items[0].ID

	err := EditItems(p, []models.ProposalItemRequest{
		{ID: id, Name: "a", UnitPrice: decimal.NewFromInt(1)},
		{ID: id, Name: "b", UnitPrice: decimal.NewFromInt(2)},
	})
	if !errors.Is(err, models.ErrInvalidItem) {
		t.Errorf("EditItems() error = %v, want ErrInvalidItem", err)
	}
}

func TestSubmit_EmptyItemList(t *testing.T) {
	p := newDraft(t)

	for i := 0; i < 3; i++ {
		err := Submit(p, baseTime.Add(time.Hour))
		if !errors.Is(err, models.ErrEmptyItemList) {
			t.Fatalf("Submit() error = %v, want ErrEmptyItemList", err)
		}
	}
	if p.Status != models.DraftProposal || p.SubmittedAt != nil {
		t.Errorf("Submit() mutated proposal: status=%v submittedAt=%v", p.Status, p.SubmittedAt)
	}
}

func TestSubmit_RequiresItemNames(t *testing.T) {
	p := newDraft(t)
	reqs := []models.ProposalItemRequest{
		{Name: "framing", UnitPrice: decimal.NewFromInt(100)},
		{Name: "   ", UnitPrice: decimal.NewFromInt(50)},
	}
	if err := EditItems(p, reqs); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}

	err := Submit(p, baseTime.Add(time.Hour))
	if !errors.Is(err, models.ErrInvalidItem) {
		t.Fatalf("Submit() error = %v, want ErrInvalidItem", err)
	}
	if p.Status != models.DraftProposal {
		t.Errorf("Submit() status = %v, want draft", p.Status)
	}
}

func TestLifecycleScenario(t *testing.T) {
	p := newDraft(t)
	if err := EditItems(p, items("100", "250")); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}
	if !p.TotalAmount.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("totalAmount = %v, want 350", p.TotalAmount)
	}

	submittedAt := baseTime.Add(2 * time.Hour)
	if err := Submit(p, submittedAt); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}
	if p.Status != models.SubmittedProposal {
		t.Errorf("Submit() status = %v, want submitted", p.Status)
	}
	if p.SubmittedAt == nil || !p.SubmittedAt.Equal(submittedAt) {
		t.Errorf("Submit() submittedAt = %v, want %v", p.SubmittedAt, submittedAt)
	}
	if err := EditItems(p, items("1")); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("EditItems() after submit error = %v, want ErrInvalidTransition", err)
	}

	resolvedAt := baseTime.Add(26 * time.Hour)
	if err := Accept(p, resolvedAt); err != nil {
		t.Fatalf("Accept() unexpected error: %v", err)
	}
	if p.Status != models.AcceptedProposal {
		t.Errorf("Accept() status = %v, want accepted", p.Status)
	}
	if p.ResolvedAt == nil || !p.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("Accept() resolvedAt = %v, want %v", p.ResolvedAt, resolvedAt)
	}

	if err := EditItems(p, items("1")); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("EditItems() after accept error = %v, want ErrInvalidTransition", err)
	}
	if !p.TotalAmount.Equal(decimal.NewFromInt(350)) || len(p.Items) != 2 {
		t.Errorf("items or total changed after accept: total=%v items=%d", p.TotalAmount, len(p.Items))
	}
}

func TestAcceptTwice(t *testing.T) {
	p := submitted(t)
	if err := Accept(p, baseTime.Add(3*time.Hour)); err != nil {
		t.Fatalf("Accept() unexpected error: %v", err)
	}
	before := p.Clone()

	err := Accept(p, baseTime.Add(5*time.Hour))
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("second Accept() error = %v, want ErrInvalidTransition", err)
	}
	if p.Status != before.Status || !p.ResolvedAt.Equal(*before.ResolvedAt) {
		t.Error("second Accept() changed state")
	}
}

func TestNonDraftIsImmutable(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(p *models.Proposal, now time.Time) error
	}{
		{name: "submitted", resolve: func(p *models.Proposal, now time.Time) error { return nil }},
		{name: "accepted", resolve: Accept},
		{name: "rejected", resolve: Reject},
		{name: "withdrawn", resolve: Withdraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := submitted(t)
			if err := tt.resolve(p, baseTime.Add(3*time.Hour)); err != nil {
				t.Fatalf("resolve unexpected error: %v", err)
			}

			for i := 0; i < 3; i++ {
				if err := EditItems(p, items("5")); !errors.Is(err, models.ErrInvalidTransition) {
					t.Errorf("EditItems() error = %v, want ErrInvalidTransition", err)
				}
				if err := CheckDelete(p); !errors.Is(err, models.ErrInvalidTransition) {
					t.Errorf("CheckDelete() error = %v, want ErrInvalidTransition", err)
				}
				if err := Submit(p, baseTime.Add(4*time.Hour)); !errors.Is(err, models.ErrInvalidTransition) {
					t.Errorf("Submit() error = %v, want ErrInvalidTransition", err)
				}
			}
		})
	}
}

func TestResolveFromDraft(t *testing.T) {
	for _, op := range []models.ProposalOperation{models.AcceptOperation, models.RejectOperation, models.WithdrawOperation} {
		t.Run(string(op), func(t *testing.T) {
			p := newDraft(t)
			err := Resolve(p, op, baseTime)
			if !errors.Is(err, models.ErrInvalidTransition) {
				t.Fatalf("Resolve(%s) error = %v, want ErrInvalidTransition", op, err)
			}
			if p.Status != models.DraftProposal || p.ResolvedAt != nil {
				t.Errorf("Resolve(%s) mutated draft", op)
			}
		})
	}
}

func TestInvalidTransitionMessage(t *testing.T) {
	p := submitted(t)
	err := CheckDelete(p)

	var errorResponse *models.ErrorResponse
	if !errors.As(err, &errorResponse) {
		t.Fatalf("CheckDelete() error type = %T, want *models.ErrorResponse", err)
	}
	want := "cannot delete proposal in status submitted"
	if errorResponse.Message != want {
		t.Errorf("message = %q, want %q", errorResponse.Message, want)
	}
}

func TestResolvedAtNotBeforeSubmittedAt(t *testing.T) {
	p := submitted(t)
	if err := Reject(p, p.SubmittedAt.Add(-time.Hour)); err != nil {
		t.Fatalf("Reject() unexpected error: %v", err)
	}
	if p.ResolvedAt.Before(*p.SubmittedAt) {
		t.Errorf("resolvedAt %v before submittedAt %v", p.ResolvedAt, p.SubmittedAt)
	}
}

func TestToRecord(t *testing.T) {
	tests := []struct {
		name        string
		resolve     func(p *models.Proposal, now time.Time) error
		wantOutcome models.RequestOutcome
		wantTimed   bool
	}{
		{name: "pending", resolve: func(p *models.Proposal, now time.Time) error { return nil }, wantOutcome: models.PendingOutcome},
		{name: "accepted", resolve: Accept, wantOutcome: models.CompletedOutcome, wantTimed: true},
		{name: "rejected", resolve: Reject, wantOutcome: models.CompletedOutcome, wantTimed: true},
		{name: "withdrawn", resolve: Withdraw, wantOutcome: models.CancelledOutcome, wantTimed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := submitted(t)
			if err := tt.resolve(p, baseTime.Add(30*time.Hour)); err != nil {
				t.Fatalf("resolve unexpected error: %v", err)
			}

			rec, ok := ToRecord(p)
			if !ok {
				t.Fatal("ToRecord() returned no record")
			}
			if rec.Outcome != tt.wantOutcome {
				t.Errorf("ToRecord() outcome = %v, want %v", rec.Outcome, tt.wantOutcome)
			}
			if (rec.ResolvedAt != nil) != tt.wantTimed {
				t.Errorf("ToRecord() resolvedAt = %v, want set=%v", rec.ResolvedAt, tt.wantTimed)
			}
			if !rec.CreatedAt.Equal(*p.SubmittedAt) {
				t.Errorf("ToRecord() createdAt = %v, want submittedAt %v", rec.CreatedAt, p.SubmittedAt)
			}
			if rec.Role != string(models.GeneralContractor) || rec.Category != string(models.Construction) {
				t.Errorf("ToRecord() role/category = %v/%v", rec.Role, rec.Category)
			}
		})
	}

	if _, ok := ToRecord(newDraft(t)); ok {
		t.Error("ToRecord() must skip drafts")
	}
}

func submitted(t *testing.T) *models.Proposal {
	t.Helper()
	p := newDraft(t)
	if err := EditItems(p, items("100", "250")); err != nil {
		t.Fatalf("EditItems() unexpected error: %v", err)
	}
	if err := Submit(p, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}
	return p
}
