// Package handler provides type-safe HTTP request handling for JSON APIs.
//
// Handlers are generic functions that receive a request bound into a Go
// struct and return a Response:
//
//	type planRequest struct {
//		PlanID uuid.UUID `path:"planID"`
//	}
//
//	func getPlan(ctx handler.Context, req planRequest) handler.Response {
//		plan, err := plans.Get(ctx, req.PlanID)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(plan)
//	}
//
//	r.Get("/plans/{planID}", handler.Wrap(
//		handler.HandlerFunc[handler.Context, planRequest](getPlan),
//		handler.WithBinders[handler.Context, planRequest](binder.Path(chi.URLParam)),
//	))
//
// Every JSON response uses the JSONResponse envelope with data, meta and
// error fields. HTTPError values carry the status code and the stable error
// code; any other error renders as a 500 without exposing its text.
package handler
