// internal/logger/config.go
package logger

type Config struct {
	LogFile     string
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // number of rotated files
	Compress    bool // compress rotated files
	Development bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "seller.log",
		MaxSize:     100, // 100 MB
		MaxAge:      7,   // 7 days
		MaxBackups:  3,   // 3 files
		Compress:    true,
		Development: false,
	}
}
