package pipeline

import (
	"testing"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func TestCategoryValidator_ValidateCategory(t *testing.T) {
	validator := NewCategoryValidator([]domain.Category{
		{Key: "Housing", SubCategories: []string{"Rent", "Utilities"}},
		{Key: "Food", SubCategories: []string{"Groceries", "Restaurants"}},
		{Key: "Salary"},
	})

	tests := []struct {
		name        string
		category    string
		subcategory string
		wantErr     bool
	}{
		{name: "valid category and subcategory", category: "Housing", subcategory: "Rent"},
		{name: "valid with different case", category: "housing", subcategory: "RENT"},
		{name: "valid with extra spaces", category: "  Food  ", subcategory: "  Groceries  "},
		{name: "uncategorized always valid", category: "Uncategorized", subcategory: "Uncategorized"},
		{name: "uncategorized subcategory", category: "Food", subcategory: "Uncategorized"},
		{name: "category without subcategories", category: "Salary", subcategory: "Bonus"},
		{name: "invalid category", category: "Travel", subcategory: "Rent", wantErr: true},
		{name: "invalid subcategory for valid category", category: "Housing", subcategory: "Groceries", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateCategory(tt.category, tt.subcategory)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCategory(%q, %q) error = %v, wantErr %v", tt.category, tt.subcategory, err, tt.wantErr)
			}
		})
	}
}

func TestCategoryValidator_CheckWarnsButKeeps(t *testing.T) {
	validator := NewCategoryValidator([]domain.Category{{Key: "Food"}})

	c := domain.CandidateTransaction{Category: "Gadgets", SubCategory: domain.Uncategorized}
	validator.Check(&c)

	if len(c.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", c.Warnings)
	}
	if c.Category != "Gadgets" {
		t.Errorf("category changed to %q", c.Category)
	}
}

func TestCategoryValidator_EmptyTaxonomy(t *testing.T) {
	c := domain.CandidateTransaction{Category: "Anything"}
	NewCategoryValidator(nil).Check(&c)
	if len(c.Warnings) != 0 {
		t.Errorf("expected no warnings without a taxonomy, got %v", c.Warnings)
	}
}
