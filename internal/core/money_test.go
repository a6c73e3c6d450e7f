package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"80000", "80000", false},
		{"1.234", "1234", false},
		{"1.234,50", "1234.5", false},
		{"1.234.567,89", "1234567.89", false},
		{"$ 1.500", "1500", false},
		{"  42  ", "42", false},
		{"0", "0", false},
		{"", "", true},
		{"$", "", true},
		{"-100", "", true},
		{"+100", "", true},
		{"1,2,3", "", true},
		{"12a", "", true},
		{",", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatARS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$ 0,00"},
		{"5", "$ 5,00"},
		{"999", "$ 999,00"},
		{"1000", "$ 1.000,00"},
		{"1234.5", "$ 1.234,50"},
		{"1234567.891", "$ 1.234.567,89"},
		{"-80000", "-$ 80.000,00"},
		{"-0.001", "$ 0,00"},
		{"-0.005", "-$ 0,01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatARS(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("FormatARS(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount("x", decimal.Zero); err != nil {
		t.Errorf("zero should be valid: %v", err)
	}
	if err := ValidateAmount("x", decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative err = %v, want ErrInvalidAmount", err)
	}
}

func TestSum(t *testing.T) {
	got := Sum(decimal.NewFromInt(1), decimal.RequireFromString("2.5"), decimal.NewFromInt(3))
	if !got.Equal(decimal.RequireFromString("6.5")) {
		t.Errorf("Sum = %s, want 6.5", got)
	}
	if !Sum().IsZero() {
		t.Error("Sum() should be zero")
	}
}
