package config

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetMongoURI() string {
	return GetEnv("MONGO_URI", "")
}

func (Store) GetMongoDatabase() string {
	return GetEnv("MONGO_DATABASE", "sharefile_connect")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}
