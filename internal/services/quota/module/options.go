package module

import "repolyze/internal/platform/config"

// Options controls the quota admission service
type Options struct {
	BurstLimit int
}

// FromConfig reads with QUOTA_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("QUOTA_")
	return Options{
		BurstLimit: c.MayInt("BURST_LIMIT", 10),
	}
}
