package store

import "testing"

func TestSQLStringArray_ValueAndScanRoundTrip(t *testing.T) {
	original := sqlStringArray{"ns1.cybertemp.xyz", "ns2.cybertemp.xyz", `with "quote"`}

	val, err := original.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got sqlStringArray
	if err := got.Scan(val); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}

	if len(got) != len(original) {
		t.Fatalf("expected %d elements, got %d", len(original), len(got))
	}
	for i := range original {
		if got[i] != original[i] {
			t.Errorf("element %d: expected %q, got %q", i, original[i], got[i])
		}
	}
}

func TestSQLStringArray_ScanEmpty(t *testing.T) {
	var got sqlStringArray
	if err := got.Scan("{}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestSQLStringArray_ScanNil(t *testing.T) {
	got := sqlStringArray{"leftover"}
	if err := got.Scan(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after scanning nil, got %v", got)
	}
}

func TestSQLStringArray_ValueNil(t *testing.T) {
	var a sqlStringArray
	val, err := a.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil array, got %v", val)
	}
}
