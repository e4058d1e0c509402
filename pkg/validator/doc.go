// Package validator provides declarative validation rules.
//
// Each rule pairs a Check function with translation-friendly error metadata.
// Apply evaluates the rules and aggregates every failure into a
// ValidationErrors slice that satisfies the error interface:
//
//	err := validator.Apply(
//		validator.Required("name", plan.Name),
//		validator.MaxLen("name", plan.Name, 100),
//		validator.NonNegativeAmount("price.amount", plan.Price.Amount),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// inspect verrs.Fields() or verrs.Get("name")
//	}
package validator
