package config

type Config interface {
	EnvConfig
	StorageConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
}

type mainConfig struct {
	EnvVars
	Storage
	Session
}

func New() Config {
	return mainConfig{}
}
