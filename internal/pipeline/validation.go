package pipeline

import (
	"fmt"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// CategoryValidator checks candidate categories against the known taxonomy.
// Unknown categories are not rejected; the candidate gets a warning so the
// user can fix it before commit.
type CategoryValidator struct {
	categories    map[string]bool            // Set of known category keys
	subcategories map[string]map[string]bool // Map of category -> set of known subcategories
}

// NewCategoryValidator creates a validator from the category taxonomy.
func NewCategoryValidator(categories []domain.Category) *CategoryValidator {
	v := &CategoryValidator{
		categories:    make(map[string]bool),
		subcategories: make(map[string]map[string]bool),
	}
	for _, c := range categories {
		key := foldKey(c.Key)
		v.categories[key] = true
		if v.subcategories[key] == nil {
			v.subcategories[key] = make(map[string]bool)
		}
		for _, s := range c.SubCategories {
			v.subcategories[key][foldKey(s)] = true
		}
	}
	return v
}

// ValidateCategory checks if a category and subcategory are known.
// "Uncategorized" is always accepted, as is any subcategory of a category
// that has none configured.
func (v *CategoryValidator) ValidateCategory(category, subcategory string) error {
	cat := foldKey(category)
	if cat == foldKey(domain.Uncategorized) {
		return nil
	}
	if !v.categories[cat] {
		return fmt.Errorf("unknown category %q", category)
	}

	subs := v.subcategories[cat]
	if len(subs) == 0 || foldKey(subcategory) == foldKey(domain.Uncategorized) {
		return nil
	}
	if !subs[foldKey(subcategory)] {
		return fmt.Errorf("unknown subcategory %q for category %q", subcategory, category)
	}
	return nil
}

// Check records a warning on c if its category is not known.
func (v *CategoryValidator) Check(c *domain.CandidateTransaction) {
	if len(v.categories) == 0 {
		return
	}
	if err := v.ValidateCategory(c.Category, c.SubCategory); err != nil {
		c.AddWarning("%v", err)
	}
}
