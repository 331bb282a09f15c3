package config

// DefaultExtensions returns the media extensions recognized without any configuration
func DefaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".mov", ".mp4"}
}

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Extensions:      []string{},
		ExcludePatterns: []string{},
		BufferSize:      "64KB",
		ProgressSteps:   100, // report every 1% of bytes hashed
		Verbose:         false,
	}
}
