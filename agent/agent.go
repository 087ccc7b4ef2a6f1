package agent

import (
	"sync"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/analytics"
	"github.com/Neelbiehler/qryvanta-sub003/config"
	"github.com/Neelbiehler/qryvanta-sub003/container"
	"github.com/Neelbiehler/qryvanta-sub003/engine"
	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/rest"
	"github.com/Neelbiehler/qryvanta-sub003/service"
	"github.com/Neelbiehler/qryvanta-sub003/trigger"
)

type Agent struct {
	Config           config.Config
	container        *container.DIContainer
	executionService *service.WorkflowExecutionService
	staleMonitor     *service.StaleRunMonitor
	scheduler        *trigger.Scheduler
	eventListener    *trigger.RecordEventListener
	httpServer       *rest.Server
	shutdown         bool
	shutdowns        chan struct{}
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config:    conf,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupContainer,
		a.setupExecutionService,
		a.setupStaleMonitor,
		a.setupTriggerSources,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	if a.Config.AnalyticsFile == "" {
		return nil
	}
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		FileName:      a.Config.AnalyticsFile,
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
	})
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupExecutionService() error {
	executor := engine.NewActionExecutor(a.container.GetRecordCreator())
	executionEngine := engine.NewExecutionEngine(executor)
	controller := engine.NewRetryController(
		executionEngine,
		a.container.GetRunLedger(),
		time.Duration(a.Config.AttemptTimeoutSeconds)*time.Second,
		nil,
	)
	matcher := trigger.NewMatcher(a.container.GetDefinitionStorage())
	a.executionService = service.NewWorkflowExecutionService(
		a.container.GetMetadataService(),
		matcher,
		a.container.GetRunLedger(),
		controller,
		a.Config.RunExecutorCapacity,
		a.Config.RunExecutorWorkers,
		time.Duration(a.Config.StaleRunSeconds)*time.Second,
		nil,
		&a.wg,
	)
	a.executionService.Start()
	return nil
}

func (a *Agent) setupStaleMonitor() error {
	a.staleMonitor = service.NewStaleRunMonitor(
		a.container.GetRunLedger(),
		a.Config.ScheduleTenants,
		time.Duration(a.Config.StaleRunSeconds)*time.Second,
		a.Config.StaleScanSeconds,
		a.shutdowns,
		&a.wg,
		nil,
	)
	a.staleMonitor.Start()
	return nil
}

func (a *Agent) setupTriggerSources() error {
	a.scheduler = trigger.NewScheduler(a.Config.ScheduleSpec, a.Config.ScheduleTenants, a.executionService)
	a.eventListener = trigger.NewRecordEventListener(
		time.Duration(a.Config.EventDedupTTLSeconds)*time.Second,
		a.executionService,
	)
	return a.scheduler.Start()
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(
		a.Config.HttpPort,
		a.container.GetMetadataService(),
		a.executionService,
		a.eventListener,
		a.container.GetRunLedger(),
		a.Config.ApiToken,
	)
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped")
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.scheduler.Stop,
		a.httpServer.Stop,
		a.executionService.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
