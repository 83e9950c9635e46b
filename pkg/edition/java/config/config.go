package config

import (
	"fmt"
	"time"

	"go.minekube.com/limbo/pkg/util/configutil"
	"go.minekube.com/limbo/pkg/util/validation"
)

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	Bind: "0.0.0.0:25565",
	Status: Status{
		ShowMaxPlayers: 1000,
		Motd:           "§bA Limbo Server",
	},
	Compression: Compression{
		Threshold: 256,
		Level:     -1,
	},
	ConnectionTimeout: 5000,
	ReadTimeout:       30000,
	KeepAliveInterval: 15000,
	Quota: Quota{
		Connections: QuotaSettings{Enabled: true, OPS: 5, Burst: 10, MaxEntries: 1000},
		Logins:      QuotaSettings{Enabled: true, OPS: 0.4, Burst: 3, MaxEntries: 1000},
	},
	ShutdownReason: "§cLimbo is shutting down...\nPlease reconnect in a moment!",
}

// Config is the configuration of the limbo server.
type Config struct {
	Bind string // The address to listen for connections.

	Status Status

	ConnectionTimeout int // Write timeout in milliseconds
	ReadTimeout       int // Read timeout in milliseconds
	KeepAliveInterval int // Milliseconds between keep alives sent to players

	Quota         Quota
	Compression   Compression
	ProxyProtocol bool // ha-proxy compatibility

	Debug          bool
	ShutdownReason string
}

type (
	Status struct {
		ShowMaxPlayers int
		Motd           string
		Favicon        string // Png/jpeg file path or data uri
	}
	Compression struct {
		Threshold int
		Level     int
	}
	// Quota is the config for rate limiting.
	Quota struct {
		Connections QuotaSettings // Limits new connections per second, per IP block.
		Logins      QuotaSettings // Limits logins per second, per IP block.
	}
	QuotaSettings struct {
		Enabled    bool    // If false, there is no such limiting.
		OPS        float32 // Allowed operations/events per second, per IP block
		Burst      int     // The maximum events per second, per block; the size of the token bucket
		MaxEntries int     // Maximum number of IP blocks to keep track of in cache
	}
)

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Millisecond
}

// ConnectionTimeoutDuration returns ConnectionTimeout as a time.Duration.
func (c *Config) ConnectionTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectionTimeout) * time.Millisecond
}

// KeepAliveDuration returns KeepAliveInterval as a time.Duration.
func (c *Config) KeepAliveDuration() time.Duration {
	return time.Duration(c.KeepAliveInterval) * time.Millisecond
}

// SetDefaults sets Config defaults used with Viper.
func SetDefaults(i configutil.SetDefault) {
	d := DefaultConfig
	i.SetDefault("bind", d.Bind)
	i.SetDefault("shutdownReason", d.ShutdownReason)

	i.SetDefault("status.motd", d.Status.Motd)
	i.SetDefault("status.showMaxPlayers", d.Status.ShowMaxPlayers)
	i.SetDefault("status.favicon", d.Status.Favicon)

	i.SetDefault("compression.threshold", d.Compression.Threshold)
	i.SetDefault("compression.level", d.Compression.Level)

	// Default quotas should never affect legitimate operations,
	// but rate limits aggressive behaviours.
	for key, q := range map[string]QuotaSettings{
		"quota.connections": d.Quota.Connections,
		"quota.logins":      d.Quota.Logins,
	} {
		i.SetDefault(key+".enabled", q.Enabled)
		i.SetDefault(key+".ops", q.OPS)
		i.SetDefault(key+".burst", q.Burst)
		i.SetDefault(key+".maxEntries", q.MaxEntries)
	}

	i.SetDefault("connectionTimeout", d.ConnectionTimeout)
	i.SetDefault("readTimeout", d.ReadTimeout)
	i.SetDefault("keepAliveInterval", d.KeepAliveInterval)
}

// Validate validates Config.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	if len(c.Bind) == 0 {
		e("Bind is empty")
	} else if err := validation.ValidHostPort(c.Bind); err != nil {
		e("Invalid bind %q: %v", c.Bind, err)
	}

	if c.Status.ShowMaxPlayers < 0 {
		e("Invalid status max players %d, use a number >= 0", c.Status.ShowMaxPlayers)
	}

	if c.Compression.Level < -1 || c.Compression.Level > 9 {
		e("Unsupported compression level %d: must be -1..9", c.Compression.Level)
	} else if c.Compression.Level == 0 {
		w("All packets are sent uncompressed, this increases bandwidth usage.")
	}

	if c.Compression.Threshold < -1 {
		e("Invalid compression threshold %d: must be >= -1", c.Compression.Threshold)
	} else if c.Compression.Threshold == 0 {
		w("All packets will be compressed, this lowers bandwidth, " +
			"but has lower throughput and increases CPU usage.")
	}

	if c.ConnectionTimeout <= 0 {
		e("Invalid connection timeout %d, use a number > 0", c.ConnectionTimeout)
	}
	if c.ReadTimeout <= 0 {
		e("Invalid read timeout %d, use a number > 0", c.ReadTimeout)
	}
	if c.KeepAliveInterval <= 0 {
		e("Invalid keep alive interval %d, use a number > 0", c.KeepAliveInterval)
	} else if c.ReadTimeout > 0 && c.KeepAliveInterval >= c.ReadTimeout {
		w("Keep alive interval %dms is not shorter than the read timeout %dms, "+
			"idle players may time out.", c.KeepAliveInterval, c.ReadTimeout)
	}

	for name, quota := range map[string]QuotaSettings{
		"connections": c.Quota.Connections,
		"logins":      c.Quota.Logins,
	} {
		if !quota.Enabled {
			continue
		}
		if quota.OPS <= 0 {
			e("Invalid %s quota ops %v, use a number > 0", name, quota.OPS)
		}
		if quota.Burst < 1 {
			e("Invalid %s quota burst %d, use a number >= 1", name, quota.Burst)
		}
		if quota.MaxEntries < 1 {
			e("Invalid %s quota max entries %d, use a number >= 1", name, quota.MaxEntries)
		}
	}

	return
}
