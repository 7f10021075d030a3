package scheduler

import (
	"errors"
	"reflect"
	"testing"
)

func TestRepertoireAdd(t *testing.T) {
	base := Repertoire{5, 10}

	tests := []struct {
		name string
		add  int
		want Repertoire
	}{
		{name: "duplicate is ignored", add: 5, want: Repertoire{5, 10}},
		{name: "above range is ignored", add: 195, want: Repertoire{5, 10}},
		{name: "zero is ignored", add: 0, want: Repertoire{5, 10}},
		{name: "valid number is appended in order", add: 42, want: Repertoire{5, 10, 42}},
		{name: "valid number is inserted in order", add: 7, want: Repertoire{5, 7, 10}},
		{name: "upper bound accepted", add: 194, want: Repertoire{5, 10, 194}},
		{name: "lower bound accepted", add: 1, want: Repertoire{1, 5, 10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := base.Add(tc.add)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Add(%d) = %v, want %v", tc.add, got, tc.want)
			}
			if !reflect.DeepEqual(base, Repertoire{5, 10}) {
				t.Fatalf("receiver was modified: %v", base)
			}
		})
	}
}

func TestRepertoireRemoveAndNormalize(t *testing.T) {
	r := Repertoire{42, 5, 10, 5}

	if got := r.Remove(5); !reflect.DeepEqual(got, Repertoire{42, 10}) {
		t.Fatalf("unexpected Remove result: %v", got)
	}
	if got := r.Normalize(); !reflect.DeepEqual(got, Repertoire{5, 10, 42}) {
		t.Fatalf("unexpected Normalize result: %v", got)
	}
	if got := r.Sorted(); !reflect.DeepEqual(got, Repertoire{5, 5, 10, 42}) {
		t.Fatalf("unexpected Sorted result: %v", got)
	}
}

func TestRepertoireValidate(t *testing.T) {
	if err := (Repertoire{1, 194}).Validate(); err != nil {
		t.Fatalf("expected bounds to validate, got %v", err)
	}
	if err := (Repertoire{5, 195}).Validate(); !errors.Is(err, ErrTalkNumberOutOfRange) {
		t.Fatalf("expected ErrTalkNumberOutOfRange, got %v", err)
	}
	if err := (Repertoire{-3}).Validate(); !errors.Is(err, ErrTalkNumberOutOfRange) {
		t.Fatalf("expected ErrTalkNumberOutOfRange, got %v", err)
	}
}
