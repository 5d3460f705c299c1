package bundle

// Flags are the three independent booleans that drive target selection.
// They are a pure input to Select; parsing them from a CLI is the caller's
// concern.
type Flags struct {
	// Watch enables persistent rebuild-on-change mode and inline source maps
	Watch bool
	// Deploy enables minification for the client target only
	Deploy bool
	// SSR selects the server target instead of the client target
	SSR bool
}

// ParseFlags extracts the recognized flags from a raw argument list by
// membership test. Unrecognized tokens are ignored, as are order and
// duplication.
func ParseFlags(args []string) Flags {
	var f Flags
	for _, arg := range args {
		switch arg {
		case "--watch":
			f.Watch = true
		case "--deploy":
			f.Deploy = true
		case "--ssr":
			f.SSR = true
		}
	}
	return f
}

// Mode is how the selected config is run.
type Mode int

const (
	// ModeOnce performs a single synchronous build and returns
	ModeOnce Mode = iota
	// ModeWatch opens a long-lived build context that rebuilds on change
	ModeWatch
)

func (m Mode) String() string {
	if m == ModeWatch {
		return "watch"
	}
	return "once"
}

// Select resolves the active build target and run mode from the flags.
// It is a pure function: each call constructs a fresh Config.
func Select(opts Options, f Flags) (Config, Mode) {
	mode := ModeOnce
	if f.Watch {
		mode = ModeWatch
	}

	if f.SSR {
		return ServerConfig(opts, f), mode
	}
	return ClientConfig(opts, f), mode
}
