// Package logger builds slog loggers and provides the attribute helpers used
// across the module.
//
// New creates a *slog.Logger from functional options: output format, level,
// static attributes and ContextExtractor callbacks that pull attributes out of
// the context of each log call.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "meterd"),
//	    logger.WithContextExtractors(logger.OperationExtractor),
//	)
//	logger.SetAsDefault(log)
//
//	ctx = logger.WithOperation(ctx, account, operationID)
//	log.InfoContext(ctx, "charge settled", logger.Tenths("cost", 50))
//
// Attribute helpers keep key names consistent: Account, OperationID, Tenths,
// Actor and Source describe metering events; Error records the message together
// with its taxonomy code from package meter. Error and Errors return an empty
// Attr for nil errors, so they can be passed unconditionally.
package logger
