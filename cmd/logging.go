package cmd

import (
	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/urfave/cli"
)

var logger = log.New("polaris-lbvh")

// Apply the configured log level; the -v and -vv flags take precedence.
func setupLogging(ctx *cli.Context, level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsed)

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}
