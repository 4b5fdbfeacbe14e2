package database

// DatabaseConfig is a subset of the configuration focusing solely
// on database connection items. The database is optional; when not
// enabled the remaining fields are ignored.
type DatabaseConfig struct {
	Enabled      bool   `yaml:"enabled" env:"DB_ENABLED" env-default:"false"`
	User         string `yaml:"username" env:"DB_USERNAME"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	Name         string `yaml:"name" env:"DB_NAME" env-default:"MEDIAGETTER_DB"`
	Host         string `yaml:"host" env:"DB_HOST" env-default:"0.0.0.0"`
	Port         string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	PingAttempts int    `yaml:"ping_attempts" env:"DB_PING_ATTEMPTS" env-default:"5"`
}
