package utils

import (
	"testing"

	"github.com/Gkemhcs/justeat-linker/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		level   logrus.Level
		jsonFmt bool
	}{
		{name: "production", cfg: config.Config{Env: "production"}, level: logrus.InfoLevel, jsonFmt: true},
		{name: "development", cfg: config.Config{Env: "development"}, level: logrus.DebugLevel},
		{name: "override", cfg: config.Config{Env: "production", LogLevel: "warn"}, level: logrus.WarnLevel, jsonFmt: true},
		{name: "bad override", cfg: config.Config{Env: "production", LogLevel: "loud"}, level: logrus.InfoLevel, jsonFmt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			log := New(&cfg)
			assert.Equal(t, tt.level, log.GetLevel())
			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.jsonFmt, isJSON)
		})
	}
}
