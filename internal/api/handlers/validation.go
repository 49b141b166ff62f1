package handlers

import (
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

// NewRequestValidator returns the validator used by every handler, with the
// marketplace enums registered as tags.
func NewRequestValidator() (*validator.Validator, error) {
	v := validator.New()

	categories := make([]string, len(entities.ServiceCategories))
	for i, c := range entities.ServiceCategories {
		categories[i] = string(c)
	}
	enums := map[string][]string{
		"category":    categories,
		"role":        {string(entities.RoleCustomer), string(entities.RoleProvider)},
		"price_type":  {string(entities.PriceTypeFixed), string(entities.PriceTypeHourly)},
		"window_kind": {string(entities.WindowOpen), string(entities.WindowBlocked)},
	}
	for tag, values := range enums {
		if err := v.RegisterEnum(tag, values...); err != nil {
			return nil, err
		}
	}
	return v, nil
}
