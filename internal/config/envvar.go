package config

// EnvPrefix is prepended to every config key when looking it up in the
// environment: server.port is read from CUI_SERVER_PORT.
const EnvPrefix = "CUI"

// Environment variable names with a meaning outside the config file.
const (
	EnvBaseDir  = "CUI_BASE_DIR"     // Directory holding .cui/
	EnvLogLevel = "CUI_LOGGER_LEVEL" // debug, info, warn or error
	EnvJSON     = "CUI_JSON"         // Enable JSON output ("1" or "true")
)
