package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags maps config keys to flag names so flags override file and env.
func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if f := lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}
