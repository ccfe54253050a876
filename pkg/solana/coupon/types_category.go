package coupon

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownCategory = errors.New("unknown coupon category")

type Category uint8

// Variant tags must match the program's enum declaration. Tags are assigned
// explicitly below and never derived from Go declaration order.
const (
	CategoryFoodAndBeverage Category = 0
	CategoryRetail          Category = 1
	CategoryServices        Category = 2
	CategoryTravel          Category = 3
	CategoryEntertainment   Category = 4
	CategoryOther           Category = 5
)

var categoryNames = map[Category]string{
	CategoryFoodAndBeverage: "FoodAndBeverage",
	CategoryRetail:          "Retail",
	CategoryServices:        "Services",
	CategoryTravel:          "Travel",
	CategoryEntertainment:   "Entertainment",
	CategoryOther:           "Other",
}

// Labels used by the storefront, which are mapped onto program variants.
var categoryAliases = map[string]Category{
	"food & beverage": CategoryFoodAndBeverage,
	"food":            CategoryFoodAndBeverage,
	"retail":          CategoryRetail,
	"services":        CategoryServices,
	"travel":          CategoryTravel,
	"entertainment":   CategoryEntertainment,
	"other":           CategoryOther,
}

func (c Category) Validate() error {
	if _, ok := categoryNames[c]; !ok {
		return errors.Wrapf(ErrUnknownCategory, "tag %d", c)
	}
	return nil
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseCategory resolves either the program variant name or a storefront
// label. Unknown values are an error rather than a fallback to Other.
func ParseCategory(value string) (Category, error) {
	for c, name := range categoryNames {
		if strings.EqualFold(name, value) {
			return c, nil
		}
	}

	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return c, nil
	}

	return 0, errors.Wrapf(ErrUnknownCategory, "%q", value)
}
