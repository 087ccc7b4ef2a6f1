package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"

// StepDataCollector is the observability sink for step outcomes and
// log_message steps. Appends are fire-and-forget.
type StepDataCollector interface {
	RecordLogMessage(tenant string, wfName string, runId string, stepPath string, message string)
	RecordStepSuccess(tenant string, wfName string, runId string, stepPath string, attempt int)
	RecordStepFailure(tenant string, wfName string, runId string, stepPath string, attempt int, reason string)
}

var stepCollector StepDataCollector

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		stepCollector = c
	}
	return nil
}

func RecordLogMessage(tenant string, wfName string, runId string, stepPath string, message string) {
	if stepCollector == nil {
		return
	}
	stepCollector.RecordLogMessage(tenant, wfName, runId, stepPath, message)
}

func RecordStepSuccess(tenant string, wfName string, runId string, stepPath string, attempt int) {
	if stepCollector == nil {
		return
	}
	stepCollector.RecordStepSuccess(tenant, wfName, runId, stepPath, attempt)
}

func RecordStepFailure(tenant string, wfName string, runId string, stepPath string, attempt int, reason string) {
	if stepCollector == nil {
		return
	}
	stepCollector.RecordStepFailure(tenant, wfName, runId, stepPath, attempt, reason)
}
