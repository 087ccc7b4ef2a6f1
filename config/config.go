package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_SQLITE StorageType = "sqlite"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig           RedisStorageConfig
	SqliteConfig          SqliteStorageConfig
	HttpPort              int
	StorageType           StorageType
	RunExecutorCapacity   int
	RunExecutorWorkers    int
	AttemptTimeoutSeconds int
	ScheduleSpec          string
	ScheduleTenants       []string
	EventDedupTTLSeconds  int
	StaleRunSeconds       int
	StaleScanSeconds      int
	RecordStoreUrl        string
	ApiToken              string
	AnalyticsFile         string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type SqliteStorageConfig struct {
	Path string
}
