package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config file values fill in any flag the user did not set explicitly,
// so flags always win over $HOME/.eon-audit.yaml.

func applyIntDefault(flags *pflag.FlagSet, name, key string, setter func(int)) {
	if flags == nil || setter == nil || !viper.IsSet(key) {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(viper.GetInt(key))
}

func applyDurationDefault(flags *pflag.FlagSet, name, key string, setter func(time.Duration)) {
	if flags == nil || setter == nil || !viper.IsSet(key) {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(viper.GetDuration(key))
}
