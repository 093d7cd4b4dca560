package repository

import (
	"strings"
	"testing"
)

func TestIncrementSoldCountIsConditional(t *testing.T) {
	for _, fragment := range []string{
		"sold_count = sold_count + 1",
		"WHERE id = $1 AND status = 'available' AND sold_count < max_sales",
		"CASE WHEN sold_count + 1 >= max_sales THEN 'sold' ELSE status END",
		"RETURNING sold_count, max_sales",
	} {
		if !strings.Contains(incrementSoldCountQuery, fragment) {
			t.Fatalf("expected increment query to contain %q", fragment)
		}
	}
}

func TestActivePurchaseIgnoresExpired(t *testing.T) {
	if !strings.Contains(hasActivePurchaseQuery, "status NOT IN ('expired', 'refund_required')") {
		t.Fatal("expired and refund_required purchases must not block a new purchase")
	}
	if !strings.Contains(listByVendorQuery, "p.status <> 'expired'") {
		t.Fatal("expired purchases must not be listed")
	}
}

func TestExpireOnlyTouchesPending(t *testing.T) {
	for name, q := range map[string]string{"by id": expireByIDQuery, "by session": expireBySessionQuery} {
		if !strings.Contains(q, "status = 'pending'") {
			t.Fatalf("expire %s must be limited to pending purchases", name)
		}
	}
}

func TestMarkRefundRequiredOnlyFlipsUnsettledRows(t *testing.T) {
	for _, fragment := range []string{"SET status = 'refund_required'", "status IN ('pending', 'expired')"} {
		if !strings.Contains(markRefundRequiredQuery, fragment) {
			t.Fatalf("expected refund query to contain %q", fragment)
		}
	}
}

func TestSettledStatuses(t *testing.T) {
	settled := map[Status]bool{
		StatusPending:        false,
		StatusExpired:        false,
		StatusCompleted:      true,
		StatusRefundRequired: true,
		StatusRefunded:       true,
	}
	for status, want := range settled {
		if got := status.Settled(); got != want {
			t.Fatalf("%s: expected settled=%v, got %v", status, want, got)
		}
	}
}

func TestInsertStampsCompletionOnlyForCompleted(t *testing.T) {
	if !strings.Contains(insertPurchaseQuery, "CASE WHEN $4::text = 'completed' THEN now() END") {
		t.Fatal("completed_at must only be set for completed inserts")
	}
}

func TestReportOutcomeGuards(t *testing.T) {
	for _, fragment := range []string{"vendor_id = $2", "status = 'completed'", "outcome = 'pending'"} {
		if !strings.Contains(reportOutcomeQuery, fragment) {
			t.Fatalf("expected outcome query to contain %q", fragment)
		}
	}
}

func TestOutcomeReportable(t *testing.T) {
	cases := map[Outcome]bool{
		OutcomeWon:        true,
		OutcomeLost:       true,
		OutcomeNoResponse: true,
		OutcomePending:    false,
		Outcome("maybe"):  false,
	}
	for outcome, want := range cases {
		if got := outcome.Reportable(); got != want {
			t.Fatalf("Reportable(%q) = %v, want %v", outcome, got, want)
		}
	}
}
