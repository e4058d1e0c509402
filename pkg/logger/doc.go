// Package logger builds *slog.Logger instances from functional options.
//
// New picks a JSON or text handler, attaches static attributes and wraps the
// handler with LogHandlerDecorator, which adds attributes pulled from the
// record's context (for example the authenticated user ID) on every call.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "billingd"),
//		logger.WithContextExtractors(subscription.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers such as Error, UserID and Plan keep key names consistent
// across packages. Error returns an empty attribute for nil errors so callers
// can pass it unconditionally.
package logger
