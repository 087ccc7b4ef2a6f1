package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = "" // to hide stacktrace info
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	logger := zap.New(core)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   logger,
	}, nil
}

func (lc *LogFileDataCollector) RecordLogMessage(tenant string, wfName string, runId string, stepPath string, message string) {
	lc.logger.Info("log_message", zap.String("tenant", tenant), zap.String("workflow", wfName), zap.String("runId", runId), zap.String("step", stepPath), zap.String("message", message))
}

func (lc *LogFileDataCollector) RecordStepSuccess(tenant string, wfName string, runId string, stepPath string, attempt int) {
	lc.logger.Info("step_success", zap.String("tenant", tenant), zap.String("workflow", wfName), zap.String("runId", runId), zap.String("step", stepPath), zap.Int("attempt", attempt))
}

func (lc *LogFileDataCollector) RecordStepFailure(tenant string, wfName string, runId string, stepPath string, attempt int, reason string) {
	lc.logger.Info("step_failure", zap.String("tenant", tenant), zap.String("workflow", wfName), zap.String("runId", runId), zap.String("step", stepPath), zap.Int("attempt", attempt), zap.String("reason", reason))
}
