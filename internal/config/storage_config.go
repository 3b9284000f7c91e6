package config

import "strings"

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
)

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetSQLitePath() string
	GetDatabaseURL() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	return StorageBackend(strings.ToLower(GetEnv("STORAGE_BACKEND", string(StorageSQLite))))
}

func (Storage) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", "./data/credentials.db")
}

func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}
