package commands

import (
	"strings"

	"pingboard/internal/bundle"
)

// KnownArgs filters an argument list down to the tokens this CLI defines.
// Unrecognized tokens are ignored rather than rejected, so a stray token in
// a build invocation never fails the build. Build flags are recognized by
// the same membership test the target selector parses them with.
func KnownArgs(args []string) []string {
	known := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case bundle.ParseFlags([]string{arg}) != (bundle.Flags{}):
			known = append(known, arg)
		case arg == "build" || arg == "--debug" || arg == "--version" ||
			arg == "--help" || arg == "-h":
			known = append(known, arg)
		case strings.HasPrefix(arg, "--config="):
			known = append(known, arg)
		case arg == "--config":
			known = append(known, arg)
			if i+1 < len(args) {
				i++
				known = append(known, args[i])
			}
		}
	}
	return known
}
