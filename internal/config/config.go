package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quietcore/wsdial/internal/util"
)

// Config is the CLI driver's on-disk configuration: the target to dial and
// the dial options to hand to ws.Options. The library itself (internal/ws)
// never touches this file — it takes an in-process Options struct — this
// is purely the cmd/wsdial convenience layer: a candidate-path config
// loader with atomic save-on-first-run for a generated identity field.
type Config struct {
	// Static
	TargetURL string `json:"target_url"`

	// Persistent identity for this CLI run's logs. Generated once on first
	// run if empty.
	RunID string `json:"run_id,omitempty"`

	// Dial options
	HandshakeTimeoutMS int               `json:"handshake_timeout_ms,omitempty"`
	MaxFrameSizeBytes  int64             `json:"max_frame_size_bytes,omitempty"`
	HeartbeatMS        int               `json:"heartbeat_ms,omitempty"`
	PongTimeoutMS      int               `json:"pong_timeout_ms,omitempty"`
	ExtraHeaders       map[string]string `json:"extra_headers,omitempty"`
	Extensions         map[string]string `json:"extensions,omitempty"`

	// TLS
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// Candidate default locations (ordered)
var defaultPaths = []string{
	"/etc/wsdial/config.json",
	"/opt/wsdial/config.json",
	"./config.json",
}

func Load(explicitPath string) (cfg Config, usedPath string, err error) {
	if explicitPath != "" {
		usedPath = explicitPath
	} else if env := os.Getenv("WSDIAL_CONFIG"); env != "" {
		usedPath = env
	} else {
		for _, p := range defaultPaths {
			if _, e := os.Stat(p); e == nil {
				usedPath = p
				break
			}
		}
		if usedPath == "" {
			usedPath = defaultPaths[0]
		}
	}

	b, e := os.ReadFile(usedPath)
	if e != nil {
		return cfg, usedPath, fmt.Errorf("read %s: %w", usedPath, e)
	}
	if e := json.Unmarshal(b, &cfg); e != nil {
		return cfg, usedPath, fmt.Errorf("parse %s: %w", usedPath, e)
	}

	if cfg.TargetURL == "" {
		return cfg, usedPath, errors.New("target_url is required")
	}

	// Generate a persistent run id on first run: generated once, then
	// saved back atomically so later runs reuse the same identity.
	if cfg.RunID == "" {
		cfg.RunID = util.NewUUIDv4()
		if e := SaveAtomic(usedPath, cfg); e != nil {
			return cfg, usedPath, fmt.Errorf("save generated run_id: %w", e)
		}
	}

	return cfg, usedPath, nil
}

func SaveAtomic(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
