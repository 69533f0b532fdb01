package enums

import "fmt"

// ProductCategory maps to the category enum in Postgres.
type ProductCategory string

const (
	CategoryProduce   ProductCategory = "produce"
	CategoryDairy     ProductCategory = "dairy"
	CategoryBakery    ProductCategory = "bakery"
	CategoryMeat      ProductCategory = "meat"
	CategorySeafood   ProductCategory = "seafood"
	CategoryPantry    ProductCategory = "pantry"
	CategoryFrozen    ProductCategory = "frozen"
	CategoryBeverages ProductCategory = "beverages"
	CategoryHousehold ProductCategory = "household"
)

var validProductCategories = []ProductCategory{
	CategoryProduce,
	CategoryDairy,
	CategoryBakery,
	CategoryMeat,
	CategorySeafood,
	CategoryPantry,
	CategoryFrozen,
	CategoryBeverages,
	CategoryHousehold,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductUnit maps to the unit enum in Postgres.
type ProductUnit string

const (
	UnitKilogram ProductUnit = "kg"
	UnitGram     ProductUnit = "g"
	UnitLitre    ProductUnit = "l"
	UnitMilli    ProductUnit = "ml"
	UnitPiece    ProductUnit = "piece"
	UnitPack     ProductUnit = "pack"
	UnitDozen    ProductUnit = "dozen"
)

var validProductUnits = []ProductUnit{
	UnitKilogram,
	UnitGram,
	UnitLitre,
	UnitMilli,
	UnitPiece,
	UnitPack,
	UnitDozen,
}

// String implements fmt.Stringer.
func (u ProductUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known ProductUnit.
func (u ProductUnit) IsValid() bool {
	for _, candidate := range validProductUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseProductUnit converts raw input into a ProductUnit.
func ParseProductUnit(value string) (ProductUnit, error) {
	for _, candidate := range validProductUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product unit %q", value)
}
