package container

import (
	"fmt"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/config"
	"github.com/Neelbiehler/qryvanta-sub003/metadata"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/inmem"
	rd "github.com/Neelbiehler/qryvanta-sub003/persistence/redis"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/sqlite"
	"github.com/Neelbiehler/qryvanta-sub003/records"
)

type DIContainer struct {
	initialized       bool
	definitionStorage persistence.DefinitionStorage
	runLedger         persistence.RunLedger
	metadataService   metadata.Service
	recordCreator     records.Creator
}

func NewDiContainer() *DIContainer {
	return &DIContainer{}
}

func (d *DIContainer) Init(conf config.Config) error {
	defer func() { d.initialized = true }()

	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := rd.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		}
		d.definitionStorage = rd.NewRedisDefinitionDao(rdConf)
		d.runLedger = rd.NewRedisRunLedger(rdConf)
	case config.STORAGE_TYPE_SQLITE:
		db, err := sqlite.Open(sqlite.Config{Path: conf.SqliteConfig.Path})
		if err != nil {
			return err
		}
		d.definitionStorage = sqlite.NewSqliteDefinitionDao(db)
		d.runLedger = sqlite.NewSqliteRunLedger(db)
	case config.STORAGE_TYPE_INMEM:
		d.definitionStorage = inmem.NewInMemDefinitionStorage()
		d.runLedger = inmem.NewInMemRunLedger()
	default:
		return fmt.Errorf("unknown storage type %q", conf.StorageType)
	}

	if conf.RecordStoreUrl != "" {
		d.recordCreator = records.NewHttpCreator(conf.RecordStoreUrl, time.Duration(conf.AttemptTimeoutSeconds)*time.Second)
	} else {
		d.recordCreator = records.NewInMemCreator()
	}
	d.metadataService = metadata.NewService(d.definitionStorage)
	return nil
}

func (d *DIContainer) GetDefinitionStorage() persistence.DefinitionStorage {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.definitionStorage
}

func (d *DIContainer) GetRunLedger() persistence.RunLedger {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.runLedger
}

func (d *DIContainer) GetMetadataService() metadata.Service {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.metadataService
}

func (d *DIContainer) GetRecordCreator() records.Creator {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.recordCreator
}
