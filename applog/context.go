package applog

import (
	"context"
	"go.uber.org/zap"
)

type logContextFieldKey struct{}

// FromContext returns the global logger decorated with the fields stored in ctx.
func FromContext(ctx context.Context) *Logger {
	return globalLogger.With(getContextFields(ctx)...)
}

// AddContextFields stores fields in ctx. A key that is already present is replaced.
func AddContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, logContextFieldKey{}, mergeContextFields(ctx, fields...))
}

func getContextFields(ctx context.Context) []zap.Field {
	fields, ok := ctx.Value(logContextFieldKey{}).([]zap.Field)
	if !ok {
		return nil
	}
	return fields
}

// mergeContextFields puts the new fields first, then the existing ones not overridden by them.
func mergeContextFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	current := getContextFields(ctx)
	overridden := make(map[string]bool, len(fields))
	result := make([]zap.Field, 0, len(current)+len(fields))

	for _, field := range fields {
		if overridden[field.Key] {
			continue
		}
		overridden[field.Key] = true
		result = append(result, field)
	}
	for _, field := range current {
		if !overridden[field.Key] {
			result = append(result, field)
		}
	}
	return result
}
