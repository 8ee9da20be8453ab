package errors

import (
	"sort"

	"go.uber.org/zap"
)

// Fields renders an error as structured log fields. Application errors
// contribute their code, severity and context; other errors only the
// message.
func Fields(err error) []zap.Field {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if !As(err, &appErr) {
		return []zap.Field{zap.Error(err)}
	}

	fields := []zap.Field{
		zap.String("code", string(appErr.Code)),
		zap.String("severity", string(appErr.Severity)),
		zap.String("error", appErr.Message),
	}
	if appErr.Recoverable {
		fields = append(fields, zap.Bool("recoverable", true))
	}

	keys := make([]string, 0, len(appErr.Context))
	for k := range appErr.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, appErr.Context[k]))
	}

	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}
	return fields
}

// Log writes err at a level matching its severity.
func Log(log *zap.Logger, msg string, err error) {
	if log == nil || err == nil {
		return
	}
	fields := Fields(err)

	var appErr *AppError
	if As(err, &appErr) && appErr.Severity == SeverityWarning {
		log.Warn(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}
