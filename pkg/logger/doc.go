// Package logger builds log/slog loggers and shared attribute helpers.
//
// New applies functional options; NewFromConfig reads them from AB_LOG_*
// environment variables via Config. Context extractors (see
// requestid.LoggerExtractor and abtest.LoggerExtractor) add request-scoped
// attributes to every record logged with a context:
//
//	log := logger.New(
//	    logger.WithContextExtractors(requestid.LoggerExtractor(), abtest.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "goal completed", logger.Experiment(name), logger.Goal(goal))
package logger
