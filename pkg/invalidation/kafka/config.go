package kafka

import (
	"strings"
	"time"
)

type TLSConfig struct {
	Enable     bool
	SkipVerify bool
}

type SASLConfig struct {
	Enable    bool
	Mechanism string
	Username  string
	Password  string
}

type PublisherConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	Timeout  time.Duration

	TLS  TLSConfig
	SASL SASLConfig
}

// Split parses a comma separated broker list.
func Split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
