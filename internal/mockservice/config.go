package mockservice

// Config holds configuration for the mock service.
type Config struct {
	// Port is the port on which the service listens.
	Port int `yaml:"port"`

	// PendingPolls is how many batchEnd calls answer "still working" before
	// the batch summary is returned.
	PendingPolls int `yaml:"pending_polls"`

	// StorePath is the SQLite database holding baselines and resources.
	// Empty keeps everything in memory.
	StorePath string `yaml:"store_path"`

	// Failures makes the named commands fail with the given message.
	Failures map[string]string `yaml:"failures"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:         7373,
		PendingPolls: 1,
	}
}
