//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	env    []string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) { o.args = args }
}

// withEnv adds KEY=VALUE pairs on top of the current environment.
func withEnv(kv ...string) cmdOption {
	return func(o *cmdOptions) { o.env = append(o.env, kv...) }
}

func withStream() cmdOption {
	return func(o *cmdOptions) { o.stream = true }
}

// executeCmd runs command and returns its combined output. Output is echoed
// when streaming or when mage runs verbose, and dumped on failure otherwise.
func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	fmt.Printf("=> %s %s\n", command, strings.Join(opts.args, " "))
	cmd := exec.Command(command, opts.args...)
	if len(opts.env) > 0 {
		cmd.Env = append(os.Environ(), opts.env...)
	}

	var out bytes.Buffer
	echo := mg.Verbose() || opts.stream
	if echo {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout, cmd.Stderr = &out, &out
	}

	if err := cmd.Run(); err != nil {
		if !echo {
			fmt.Print(out.String())
		}
		return "", fmt.Errorf("%s failed: %w", command, err)
	}
	return out.String(), nil
}
