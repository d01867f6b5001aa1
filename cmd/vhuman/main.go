// vhuman: Virtual human backend
// Serves chat, speech, avatar animation and tool APIs for a Unity avatar.
package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/teslashibe/go-vhuman/internal/config"
	"github.com/teslashibe/go-vhuman/internal/log"
)

var version = "1.0.0"

// global holds the parsed root options for sub-commands.
var global = &Options{}

func main() {
	args := os.Args[1:]
	global.Init(commandName(args))

	parser := flags.NewParser(global, flags.Default)
	parser.Name = "vhuman"
	if _, err := parser.ParseArgs(args); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// commandName returns the first argument that is not a root option.
func commandName(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-f" || a == "--config":
			i++
		case strings.HasPrefix(a, "-"):
		default:
			return a
		}
	}
	return ""
}

// loadSettings reads configuration and initialises logging.
func loadSettings(ctx context.Context) (*config.Settings, error) {
	s, err := config.Load(ctx, global.Config)
	if err != nil {
		return nil, err
	}
	if global.Debug {
		s.Server.Debug = true
		s.LogLevel = "debug"
	}
	log.Init(s.LogLevel, s.LogFormat)
	return s, nil
}
