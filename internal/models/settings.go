package models

// Default limits.
const (
	DefaultDailyCapUSD      = 50.0
	DefaultMaxBuildAttempts = 8
	DefaultAgentTimeoutSecs = 180
	DefaultBuildTimeoutSecs = 900
	DefaultDigestMaxBytes   = 1000
)

// AgentSettings holds configuration for the external code-modification agent.
type AgentSettings struct {
	Bin         string `yaml:"bin"` // empty means lookup "claude" in PATH
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// BuilderSettings holds the build command for one target platform.
type BuilderSettings struct {
	Command     []string `yaml:"command"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// TelemetrySettings holds opt-in usage telemetry configuration.
type TelemetrySettings struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Settings represents global application settings.
// This corresponds to ~/.forgeloop/settings.yaml.
type Settings struct {
	Version          int                         `yaml:"version"`
	Agent            AgentSettings               `yaml:"agent"`
	Builders         map[string]*BuilderSettings `yaml:"builders"`
	MaxBuildAttempts int                         `yaml:"max_build_attempts"`
	DailyCapUSD      float64                     `yaml:"daily_cap_usd"`
	DigestMaxBytes   int                         `yaml:"digest_max_bytes"`
	Telemetry        TelemetrySettings           `yaml:"telemetry"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Agent: AgentSettings{
			Bin:         "", // lookup in PATH
			TimeoutSecs: DefaultAgentTimeoutSecs,
		},
		Builders: map[string]*BuilderSettings{
			"android": {
				Command:     []string{"./gradlew", "assembleDebug"},
				TimeoutSecs: DefaultBuildTimeoutSecs,
			},
			"ios": {
				Command:     []string{"xcodebuild", "build", "-scheme", "iosApp", "-configuration", "Debug"},
				TimeoutSecs: DefaultBuildTimeoutSecs,
			},
			"web": {
				Command:     []string{"./gradlew", "wasmJsBrowserDistribution"},
				TimeoutSecs: DefaultBuildTimeoutSecs,
			},
		},
		MaxBuildAttempts: DefaultMaxBuildAttempts,
		DailyCapUSD:      DefaultDailyCapUSD,
		DigestMaxBytes:   DefaultDigestMaxBytes,
	}
}

// Builder returns the build settings for a platform, or nil if unknown.
func (s *Settings) Builder(platform string) *BuilderSettings {
	return s.Builders[platform]
}
