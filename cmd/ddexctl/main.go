// Command ddexctl is a thin outer CLI wrapping the ddex engine (spec §1:
// "CLI front-ends... treated as external collaborators, with interfaces
// only" — this command is demonstrative plumbing, not part of the core
// engine's contract).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	ddex "github.com/daddykev/ddex-suite-sub003"
	"github.com/daddykev/ddex-suite-sub003/internal/preflight"
	"github.com/daddykev/ddex-suite-sub003/pkg/logger"
)

func main() {
	log := logger.New("ddexctl")

	viper.SetEnvPrefix("DDEXCTL")
	viper.AutomaticEnv()
	viper.SetDefault("preflight-level", "strict")

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: ddexctl <parse|preflight> <file.xml>")
		os.Exit(2)
	}

	cmd, path := os.Args[1], os.Args[2]
	data, err := os.ReadFile(path)
	if err != nil {
		_ = log.Err("read input", err)
		os.Exit(1)
	}

	doc, err := ddex.Parse(context.Background(), data, ddex.DefaultParseOptions())
	if err != nil {
		_ = log.Err("parse", err)
		os.Exit(1)
	}
	log.Step(fmt.Sprintf("parsed variant %s", doc.Variant))

	switch cmd {
	case "parse":
		log.Info(fmt.Sprintf("%d releases, %d resources, %d parties", len(doc.Releases), len(doc.Resources), len(doc.Parties)))
	case "preflight":
		level := preflight.Level(viper.GetString("preflight-level"))
		diags := ddex.Preflight(doc, level)
		for _, d := range diags {
			log.Warn(d.Error())
		}
		if diags.HasErrors() {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
}
