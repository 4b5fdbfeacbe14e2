package acquire

type Config struct {
	// MaxConcurrent bounds the number of acquisitions which may be
	// fetching or committing at any one time.
	MaxConcurrent int `yaml:"max_concurrent" env:"ACQUIRE_MAX_CONCURRENT" env-default:"4"`

	// RetentionMinutes is how long a finished acquisition remains
	// visible via the service before it is pruned.
	RetentionMinutes int `yaml:"retention_minutes" env:"ACQUIRE_RETENTION_MINUTES" env-default:"60"`
}
