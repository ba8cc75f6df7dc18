// Package flagx holds helpers for reading a subset of command-line flags
// without clashing with flags owned by other parts of the program.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Two forms are recognized: "-c conf.json" (value in the next argument,
// unless it starts with "-") and "--config=conf.json".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// lookupString parses os.Args for a string flag registered under every name
// in names. The last occurrence wins; empty string when absent.
func lookupString(names ...string) string {
	var value string

	dashed := make([]string, 0, len(names))
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(discard{})
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
		dashed = append(dashed, "-"+n)
	}
	_ = fs.Parse(FilterArgs(os.Args[1:], dashed))

	return value
}

// JsonConfigFlags returns the config file path passed via -c or -config.
func JsonConfigFlags() string {
	return lookupString("config", "c")
}

// EnvFileFlags returns the dotenv file path passed via -env.
func EnvFileFlags() string {
	return lookupString("env")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
