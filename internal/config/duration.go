package config

import (
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration with a TOML unmarshaller accepting either a
// duration string ("10s") or a bare integer number of seconds, matching
// telegraf's own config.Duration (referenced as `config.Duration` in
// plugins/inputs/statsd/statsd.go's TCPKeepAlivePeriod/MaxTTL fields).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler, the hook BurntSushi/toml
// calls with the text of a string or integer value.
func (d *Duration) UnmarshalText(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }
