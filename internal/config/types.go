package config

// Config is the root configuration for triage.
// Values can come from ~/.triage/config.yaml, a local .env file, or the
// process environment; environment variables win.
type Config struct {
	Jira    JiraConfig    `yaml:"jira,omitempty"`
	Ollama  OllamaConfig  `yaml:"ollama,omitempty"`
	Agents  AgentsConfig  `yaml:"agents,omitempty"`
	Reports ReportsConfig `yaml:"reports,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// JiraConfig holds the ticket tracker connection settings.
// URL, username, and API token are required for any command that talks to
// JIRA; they are usually supplied via JIRA_URL, JIRA_USERNAME, and
// JIRA_API_TOKEN rather than the config file.
type JiraConfig struct {
	URL        string `yaml:"url,omitempty"`
	Username   string `yaml:"username,omitempty"`
	APIToken   string `yaml:"apiToken,omitempty"`
	MaxResults int    `yaml:"maxResults,omitempty"` // per-search page cap
}

// OllamaConfig holds the local inference runtime settings.
type OllamaConfig struct {
	BaseURL     string   `yaml:"baseUrl,omitempty"` // default http://localhost:11434
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	TimeoutSecs int      `yaml:"timeoutSecs,omitempty"` // HTTP client timeout
}

// AgentsConfig defines crew execution defaults.
type AgentsConfig struct {
	MaxTokens         int      `yaml:"maxTokens,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxToolIterations int      `yaml:"maxToolIterations,omitempty"`
}

// ReportsConfig controls report generation.
type ReportsConfig struct {
	Dir            string `yaml:"dir,omitempty"`            // default <base>/reports
	TicketLimit    int    `yaml:"ticketLimit,omitempty"`    // unfinished-ticket query cap
	RecentProjects int    `yaml:"recentProjects,omitempty"` // size of the recent-project cache
	AI             *bool  `yaml:"ai,omitempty"`             // append AI analysis; default true
}

// StoreConfig controls the run-history database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // default <base>/data/triage.db
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
	File         string `yaml:"file,omitempty"`
}

// ReportAI reports whether the AI analysis section is enabled.
func (r ReportsConfig) ReportAI() bool {
	return r.AI == nil || *r.AI
}
