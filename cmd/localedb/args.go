package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momacs/localedb/internal/config"
)

const connArgCount = 5

// splitConnArgs peels the optional leading <host> <port> <user> <password>
// <dbname> off args. A leading flag or command name means there are none.
func splitConnArgs(args []string, isCommand func(string) bool) (*config.ConnParams, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") || isCommand(args[0]) {
		return nil, args, nil
	}
	if len(args) < connArgCount {
		return nil, nil, fmt.Errorf("unknown command %q (connection parameters are <host> <port> <user> <password> <dbname>)", args[0])
	}
	if _, err := strconv.ParseUint(args[1], 10, 16); err != nil {
		return nil, nil, fmt.Errorf("invalid port %q", args[1])
	}
	p := &config.ConnParams{
		Host:     args[0],
		Port:     args[1],
		User:     args[2],
		Password: args[3],
		DBName:   args[4],
	}
	return p, args[connArgCount:], nil
}

// commandNames reports whether a word names a subcommand of root. cobra
// adds help and completion lazily, so they are listed here.
func commandNames(root *cobra.Command) func(string) bool {
	return func(name string) bool {
		if name == "help" || name == "completion" {
			return true
		}
		for _, c := range root.Commands() {
			if c.Name() == name || c.HasAlias(name) {
				return true
			}
		}
		return false
	}
}
