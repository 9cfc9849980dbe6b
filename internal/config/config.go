package config

type Config interface {
	EnvConfig
	ShareFileConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type StoreConfig interface {
	GetMongoURI() string
	GetMongoDatabase() string
	GetRedisAddr() string
}

type mainConfig struct {
	EnvVars
	ShareFile
	Store
}

func New() Config {
	return mainConfig{
		ShareFile: NewShareFile(),
	}
}
