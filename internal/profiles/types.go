package profiles

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so profile files can use Go duration
// strings ("5m", "90s") instead of raw nanosecond counts.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Profile bundles the engine tuning knobs that are selected together.
type Profile struct {
	// Name is set during YAML unmarshaling from the map key.
	Name string `yaml:"-" json:"name"`

	Description string `yaml:"description" json:"description"`

	// LockTTL is how long an acquired lock lives without renewal.
	LockTTL Duration `yaml:"lock_ttl" json:"lock_ttl"`

	// PresenceWindow is the freshness window for active-user reads.
	PresenceWindow Duration `yaml:"presence_window" json:"presence_window"`

	// AutoVersionThreshold is how many accumulated edits trigger an
	// automatic minor snapshot. Zero disables auto-versioning.
	AutoVersionThreshold int `yaml:"auto_version_threshold" json:"auto_version_threshold"`

	// ConflictPolicy is the default resolution strategy for new sessions:
	// "manual", "auto_merge", or "last_write_wins".
	ConflictPolicy string `yaml:"conflict_policy" json:"conflict_policy"`
}

// profilesFile is the top-level structure of the embedded YAML file.
type profilesFile struct {
	Profiles map[string]*Profile `yaml:"profiles"`
}
