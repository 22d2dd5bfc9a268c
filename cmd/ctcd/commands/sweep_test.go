package commands

import (
	"reflect"
	"testing"
)

func TestParseInts(t *testing.T) {
	got, err := parseInts("1, 2,4,8")
	if err != nil {
		t.Fatalf("parseInts failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 2, 4, 8}) {
		t.Errorf("parseInts = %v", got)
	}

	if _, err := parseInts("1,x,3"); err == nil {
		t.Error("expected error for non-integer entry")
	}
	if _, err := parseInts(" , ,"); err == nil {
		t.Error("expected error for empty list")
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats("0,0.5, 1")
	if err != nil {
		t.Fatalf("parseFloats failed: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{0, 0.5, 1}) {
		t.Errorf("parseFloats = %v", got)
	}

	if _, err := parseFloats("0.5,?"); err == nil {
		t.Error("expected error for non-numeric entry")
	}
}
