package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	c := DefaultConfig
	warns, errs := c.Validate()
	assert.Empty(t, errs)
	assert.Empty(t, warns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errs   int
		warns  int
	}{
		{name: "empty bind", modify: func(c *Config) { c.Bind = "" }, errs: 1},
		{name: "bind without port", modify: func(c *Config) { c.Bind = "localhost" }, errs: 1},
		{name: "bind port out of range", modify: func(c *Config) { c.Bind = "localhost:70000" }, errs: 1},
		{name: "compression level", modify: func(c *Config) { c.Compression.Level = 10 }, errs: 1},
		{name: "no compression", modify: func(c *Config) { c.Compression.Level = 0 }, warns: 1},
		{name: "compress everything", modify: func(c *Config) { c.Compression.Threshold = 0 }, warns: 1},
		{name: "bad threshold", modify: func(c *Config) { c.Compression.Threshold = -2 }, errs: 1},
		{name: "read timeout", modify: func(c *Config) { c.ReadTimeout = 0 }, errs: 1},
		{name: "keep alive too slow", modify: func(c *Config) { c.KeepAliveInterval = c.ReadTimeout }, warns: 1},
		{name: "quota", modify: func(c *Config) {
			c.Quota.Logins = QuotaSettings{Enabled: true}
		}, errs: 3},
		{name: "disabled quota is not validated", modify: func(c *Config) {
			c.Quota.Logins = QuotaSettings{}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			tt.modify(&c)
			warns, errs := c.Validate()
			assert.Len(t, errs, tt.errs, "errs: %v", errs)
			assert.Len(t, warns, tt.warns, "warns: %v", warns)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	var c *Config
	_, errs := c.Validate()
	require.Len(t, errs, 1)
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var c Config
	require.NoError(t, v.Unmarshal(&c))
	assert.Equal(t, DefaultConfig, c)
}

func TestSetDefaults_Override(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(`
bind: 127.0.0.1:25566
proxyProtocol: true
quota:
  logins:
    enabled: false
`)))

	var c Config
	require.NoError(t, v.Unmarshal(&c))
	assert.Equal(t, "127.0.0.1:25566", c.Bind)
	assert.True(t, c.ProxyProtocol)
	assert.False(t, c.Quota.Logins.Enabled)
	assert.Equal(t, DefaultConfig.Quota.Logins.Burst, c.Quota.Logins.Burst)
	assert.Equal(t, DefaultConfig.ReadTimeout, c.ReadTimeout)
}
