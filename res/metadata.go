package res

const (
	AppName       = "tunecrate"
	DisplayName   = "TuneCrate"
	AppVersion    = "0.1.0"
	AppVersionTag = "v" + AppVersion
	ConfigFile    = "config.toml"
	GithubURL     = "https://github.com/tunecrate/tunecrate"
)
