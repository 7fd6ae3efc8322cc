package cli_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/pkg/adapters/process"
)

const helperEnv = "TTYSTEP_CLI_HELPER_PROGRAM"

func TestMain(m *testing.M) {
	if name := os.Getenv(helperEnv); name != "" {
		p, err := ttystep.DefaultRegistry().Lookup(name)
		if err == nil {
			err = process.Host(context.Background(), p, os.Stdin, os.Stdout)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func helperImage(program string) ttystep.Option {
	return ttystep.WithImage(process.Image{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     []string{helperEnv + "=" + program},
	})
}
