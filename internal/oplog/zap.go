// Package oplog adapts engine operation records onto zap.
package oplog

import (
	"context"

	"github.com/NovaArcadeLabs/goldcredits/pkg/engine"
	"go.uber.org/zap"
)

// Logger emits one structured line per engine operation. Business rejections
// log at info with their status; only unexpected failures log as errors.
type Logger struct {
	logger *zap.Logger
}

// New wires a Logger over zap.
func New(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

// LogOperation implements engine.OperationLogger.
func (operationLogger *Logger) LogOperation(ctx context.Context, entry engine.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("user_id", entry.UserID.String()),
		zap.String("status", entry.Status),
		zap.Int64("amount", entry.Amount.Int64()),
	}
	if entry.GameID != "" {
		fields = append(fields, zap.String("game_id", entry.GameID))
	}
	if entry.Error != nil {
		fields = append(fields, zap.String("reason", entry.Error.Error()))
	}
	if entry.Status == "error" {
		operationLogger.logger.Error("engine operation failed", fields...)
		return
	}
	operationLogger.logger.Info("engine operation", fields...)
}
