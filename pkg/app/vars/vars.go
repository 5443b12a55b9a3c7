package vars

const (

	// ID
	Name        = "canary-scanner"
	Description = "Scan source trees for leaked credentials and validate whether they are still live."
	URL         = "https://github.com/canarysec/canary-scanner"

	// Version is replaced at build time via ldflags.
	Version = "2.1.0"

	// Config

	ConfigParamTag = "param"
	EnvVarPrefix   = "CANARY_"
)
