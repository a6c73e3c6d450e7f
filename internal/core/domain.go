package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	// Settings timezones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

const (
	DefaultPurchasePercent = 80
	DefaultTimezone        = "America/Argentina/Tucuman"

	MinPurchasePercent = 1
	MaxPurchasePercent = 100

	MaxNoteLength = 500
)

type (
	SalesRecord struct {
		YearMonth YearMonth
		Amount    decimal.Decimal
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CommitmentRecord is the planned-vs-paid obligation of a single calendar day.
	CommitmentRecord struct {
		Date      Date
		YearMonth YearMonth
		Planned   decimal.Decimal
		Paid      decimal.Decimal
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CommitmentPatch carries a partial commitment edit. Nil fields are left untouched.
	CommitmentPatch struct {
		Planned *decimal.Decimal
		Paid    *decimal.Decimal
	}

	PurchaseRecord struct {
		ID        string
		Date      Date
		YearMonth YearMonth
		Amount    decimal.Decimal
		Category  string
		Note      string
		CreatedAt time.Time
	}

	GlobalSettings struct {
		PurchasePercent int
		Timezone        string
	}

	SettingsPatch struct {
		PurchasePercent *int
		Timezone        *string
	}
)

var (
	ErrInvalidYearMonth  = errors.New("invalid year-month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPercent    = errors.New("invalid purchase percent")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrEmptyCategory     = errors.New("empty category")
	ErrYearMonthMismatch = errors.New("date does not belong to year-month")
	ErrEmptyPatch        = errors.New("empty patch")
	ErrNoteTooLong       = errors.New("note too long (max 500 characters)")
	ErrPurchaseNotFound  = errors.New("purchase not found")
)

// IsValidation reports whether err is caused by bad input rather than a failing collaborator.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidYearMonth, ErrInvalidDate, ErrInvalidAmount, ErrInvalidPercent,
		ErrInvalidTimezone, ErrEmptyCategory, ErrYearMonthMismatch, ErrEmptyPatch, ErrNoteTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings used when none were ever stored.
func DefaultSettings() GlobalSettings {
	return GlobalSettings{
		PurchasePercent: DefaultPurchasePercent,
		Timezone:        DefaultTimezone,
	}
}

func (s GlobalSettings) Validate() error {
	if s.PurchasePercent < MinPurchasePercent || s.PurchasePercent > MaxPurchasePercent {
		return fmt.Errorf("%w: %d is outside [%d,%d]", ErrInvalidPercent, s.PurchasePercent, MinPurchasePercent, MaxPurchasePercent)
	}
	if strings.TrimSpace(s.Timezone) == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalidTimezone)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, s.Timezone)
	}
	return nil
}

// Normalize clamps the percent into range and falls back to the default timezone.
// Used on the read path so a bad stored document never reaches the aggregator.
func (s GlobalSettings) Normalize() GlobalSettings {
	if s.PurchasePercent < MinPurchasePercent {
		s.PurchasePercent = MinPurchasePercent
	}
	if s.PurchasePercent > MaxPurchasePercent {
		s.PurchasePercent = MaxPurchasePercent
	}
	if strings.TrimSpace(s.Timezone) == "" {
		s.Timezone = DefaultTimezone
	}
	return s
}

// Location resolves the configured timezone, falling back to UTC.
func (s GlobalSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Apply merges the patch over s.
func (s GlobalSettings) Apply(p SettingsPatch) GlobalSettings {
	if p.PurchasePercent != nil {
		s.PurchasePercent = *p.PurchasePercent
	}
	if p.Timezone != nil {
		s.Timezone = strings.TrimSpace(*p.Timezone)
	}
	return s
}

func (p SettingsPatch) IsEmpty() bool {
	return p.PurchasePercent == nil && p.Timezone == nil
}

func (r SalesRecord) Validate() error {
	if err := r.YearMonth.Validate(); err != nil {
		return err
	}
	return ValidateAmount("sales", r.Amount)
}

// PurchaseBudget is the gross purchase budget these sales allow at the given percent.
func (r SalesRecord) PurchaseBudget(percent int) decimal.Decimal {
	return GrossBudget(r.Amount, percent)
}

func (c CommitmentRecord) Validate() error {
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if c.Date.YearMonth() != c.YearMonth {
		return fmt.Errorf("%w: %s not in %s", ErrYearMonthMismatch, c.Date, c.YearMonth)
	}
	if err := ValidateAmount("planned", c.Planned); err != nil {
		return err
	}
	return ValidateAmount("paid", c.Paid)
}

// NewCommitment returns the zero-valued record created on the first edit of a day.
func NewCommitment(d Date) CommitmentRecord {
	return CommitmentRecord{
		Date:      d,
		YearMonth: d.YearMonth(),
		Planned:   decimal.Zero,
		Paid:      decimal.Zero,
	}
}

// Apply merges the patch over c. Planned and paid are updated independently.
func (c CommitmentRecord) Apply(p CommitmentPatch) CommitmentRecord {
	if p.Planned != nil {
		c.Planned = *p.Planned
	}
	if p.Paid != nil {
		c.Paid = *p.Paid
	}
	return c
}

// Difference is what is still planned but not yet paid.
func (c CommitmentRecord) Difference() decimal.Decimal {
	return c.Planned.Sub(c.Paid)
}

func (p CommitmentPatch) IsEmpty() bool {
	return p.Planned == nil && p.Paid == nil
}

func (p CommitmentPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: planned or paid is required", ErrEmptyPatch)
	}
	if p.Planned != nil {
		if err := ValidateAmount("planned", *p.Planned); err != nil {
			return err
		}
	}
	if p.Paid != nil {
		if err := ValidateAmount("paid", *p.Paid); err != nil {
			return err
		}
	}
	return nil
}

func (p PurchaseRecord) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if p.Date.YearMonth() != p.YearMonth {
		return fmt.Errorf("%w: %s not in %s", ErrYearMonthMismatch, p.Date, p.YearMonth)
	}
	if err := ValidateAmount("purchase", p.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	if len(p.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}
