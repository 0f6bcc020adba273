// propbag - property document CLI tool
//
// Usage:
//
//	propbag encode [file]        Encode a YAML mapping as a document
//	propbag decode [file]        Decode a document to YAML
//	propbag verify [file]        Check a document's structure and checksum
//	propbag frame [file...]      Wrap documents in stream frames
//	propbag unframe [file]       Unwrap and check a stream of frames
//	propbag version              Print version info
//
// If no file is given, reads from stdin. Defaults for framing are read from
// ~/.propbag.yaml when present.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Neumenon/propbag/internal/plog"
	"github.com/Neumenon/propbag/propbag"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	libVersion    = "0.1.0"
	formatVersion = "1"

	defaultConfigPath = "~/.propbag.yaml"
)

// config holds defaults that can be set in the config file.
type config struct {
	CRC      bool `yaml:"crc"`
	Compress int  `yaml:"compress"` // compress payloads at least this long; 0 disables
	Verify   bool `yaml:"verify"`   // verify documents while unframing
}

func defaultConfig() config {
	return config{CRC: true, Verify: true}
}

// loadConfig reads path. A missing file at the default location is not an
// error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "expand %s", path)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigPath {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", expanded)
	}
	return cfg, nil
}

// app is the state shared by all subcommands.
type app struct {
	configPath string
	cfg        config
	log        plog.Logger
	codec      *propbag.Codec
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "propbag",
		Short:         "Encode, decode and check property documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = plog.New("propbag")
			a.codec = propbag.New(propbag.WithLogger(a.log))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)

	root.AddCommand(
		a.encodeCmd(),
		a.decodeCmd(),
		a.verifyCmd(),
		a.frameCmd(),
		a.unframeCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version info",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "propbag %s (format %s)\n", libVersion, formatVersion)
			},
		},
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "propbag: %v\n", err)
		os.Exit(1)
	}
}

// openInput opens the named file, or returns stdin for "" and "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	path, err := homedir.Expand(name)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %s", name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	return f, nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	r, err := openInput(cmd, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	return data, nil
}
