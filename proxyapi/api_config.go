package proxyapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/logger"
)

type Config struct {
	// WriteRateLimit is the number of bond/unbond requests per second allowed
	// for one remote address, zero disables limiting.
	WriteRateLimit float64       `yaml:"writeRateLimit"`
	MaxBodySize    int           `yaml:"-"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
}

func (c *Config) setDefaults() {
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = consts.MaxBondBodySize
		logger.Warn("wrong maxBodySize value is fixed", zap.Int("new_value", c.MaxBodySize))
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = consts.HTTPReadTimeout
		logger.Warn("wrong readTimeout value (0) is fixed", zap.Duration("new_value", c.ReadTimeout))
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = consts.HTTPWriteTimeout
		logger.Warn("wrong writeTimeout value (0) is fixed", zap.Duration("new_value", c.WriteTimeout))
	}
}
