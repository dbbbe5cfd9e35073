package config

// Viper keys of the build options. Flags bind to these keys and NGB_<KEY>
// environment variables override them.
const (
	KeyEnv           = "env"
	KeyProd          = "prod"
	KeyFilter        = "filter"
	KeyProgress      = "progress"
	KeyLogLevel      = "loglevel"
	KeyVerbose       = "verbose"
	KeyWatch         = "watch"
	KeyPoll          = "poll"
	KeyBeep          = "beep"
	KeyStrictExtends = "strictextends"
)

// Settings returns the options declared in the manifest as a viper config
// map. Unset fields are omitted so that they never shadow defaults.
func (o *BuildOptions) Settings() map[string]any {
	out := map[string]any{}
	if o == nil {
		return out
	}
	if len(o.Environment) > 0 {
		out[KeyEnv] = []string(o.Environment)
	}
	if o.Production {
		out[KeyProd] = true
	}
	if len(o.Filter) > 0 {
		out[KeyFilter] = []string(o.Filter)
	}
	if o.Progress {
		out[KeyProgress] = true
	}
	if o.LogLevel != "" {
		out[KeyLogLevel] = o.LogLevel
	}
	if o.Verbose {
		out[KeyVerbose] = true
	}
	if o.Watch {
		out[KeyWatch] = true
	}
	if o.Poll > 0 {
		out[KeyPoll] = o.Poll
	}
	if o.Beep {
		out[KeyBeep] = true
	}
	if o.StrictExtends != nil {
		out[KeyStrictExtends] = *o.StrictExtends
	}
	return out
}

// StrictExtendsEnabled reports whether unresolved "extends" names are errors.
func (o BuildOptions) StrictExtendsEnabled() bool {
	return o.StrictExtends == nil || *o.StrictExtends
}
