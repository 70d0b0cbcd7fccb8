package utils

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("txn")
	if !strings.HasPrefix(id, "txn-") {
		t.Errorf("expected txn- prefix, got %s", id)
	}
	if len(id) != len("txn-")+12 {
		t.Errorf("unexpected id length: %s", id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID("usr")
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateTransactionID(t *testing.T) {
	if !ValidateTransactionID("txn-abc123XYZ456") {
		t.Error("expected valid transaction id")
	}
	if ValidateTransactionID("tan-abc123") {
		t.Error("expected invalid transaction id")
	}
	if ValidateTransactionID("") {
		t.Error("expected invalid transaction id")
	}
}
