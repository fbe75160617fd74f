package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Database Database
	Cluster  Cluster

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Database defines configuration options of the database layer.
type Database struct {
	// System is the name of the administrative database upgrade scripts are
	// driven from. It always exists.
	System sql.Null[string] `json:"system"`
	// ReplicationApplier controls whether the replication applier is started
	// once the database layer serves. It is always disabled in upgrade mode.
	ReplicationApplier sql.Null[bool] `json:"replication_applier"`
}

// Cluster defines configuration options of the cluster membership.
type Cluster struct {
	// Enabled makes this node participate in a cluster.
	Enabled sql.Null[bool] `json:"enabled"`
	// Node is the identifier this node announces itself with.
	Node sql.Null[string] `json:"node"`
}

type cfgWrapper struct {
	Database dbCfgWrapper      `json:"database"`
	Cluster  clusterCfgWrapper `json:"cluster"`
}
type dbCfgWrapper struct {
	System             string `json:"system,omitempty"`
	ReplicationApplier *bool  `json:"replication_applier,omitempty"`
}
type clusterCfgWrapper struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Node    string `json:"node,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Database.System.Valid {
		w.Database.System = c.Database.System.V
	}
	if c.Database.ReplicationApplier.Valid {
		w.Database.ReplicationApplier = &c.Database.ReplicationApplier.V
	}

	if c.Cluster.Enabled.Valid {
		w.Cluster.Enabled = &c.Cluster.Enabled.V
	}
	if c.Cluster.Node.Valid {
		w.Cluster.Node = c.Cluster.Node.V
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Database.System != "" {
		c.Database.System = sql.Null[string]{V: w.Database.System, Valid: true}
	}
	if w.Database.ReplicationApplier != nil {
		c.Database.ReplicationApplier = sql.Null[bool]{V: *w.Database.ReplicationApplier, Valid: true}
	}

	if w.Cluster.Enabled != nil {
		c.Cluster.Enabled = sql.Null[bool]{V: *w.Cluster.Enabled, Valid: true}
	}
	if w.Cluster.Node != "" {
		c.Cluster.Node = sql.Null[string]{V: w.Cluster.Node, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Database.System.Valid {
		c.Database.System = sql.Null[string]{V: "_system", Valid: true}
	}
	if !c.Database.ReplicationApplier.Valid {
		c.Database.ReplicationApplier = sql.Null[bool]{V: true, Valid: true}
	}
	if !c.Cluster.Enabled.Valid {
		c.Cluster.Enabled = sql.Null[bool]{V: false, Valid: true}
	}
	if !c.Cluster.Node.Valid {
		c.Cluster.Node = sql.Null[string]{V: "single", Valid: true}
	}
}
