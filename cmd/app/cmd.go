// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package app wires the thin CLI shell described in SPEC_FULL.md §2.3
// around the transform core: flag/config parsing (cobra+viper, the
// teacher's own choice, grounded on cmd/app/cmd.go), then a single call
// into pkg/transform.Transform.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/location"
	"github.com/tplforge/tplforge/pkg/location/env"
	"github.com/tplforge/tplforge/pkg/location/file"
	"github.com/tplforge/tplforge/pkg/location/filehash"
	"github.com/tplforge/tplforge/pkg/location/gitloc"
	"github.com/tplforge/tplforge/pkg/location/httploc"
	"github.com/tplforge/tplforge/pkg/location/literal"
	"github.com/tplforge/tplforge/pkg/location/random"
	"github.com/tplforge/tplforge/pkg/location/s3"
	"github.com/tplforge/tplforge/pkg/location/ssm"
	"github.com/tplforge/tplforge/pkg/transform"
)

// DefaultConfigFileName is the config file basename looked up under
// the user's home directory when TPLFORGE_CONFIG is unset.
const DefaultConfigFileName = ".tplforge"

// Options holds the resolved command-line/config-file settings
// (spec.md §6 external interface).
type Options struct {
	Root         string `mapstructure:"root"`
	Format       string `mapstructure:"format"`
	Output       string `mapstructure:"output"`
	PrintImports bool   `mapstructure:"print-imports"`
}

var vip *viper.Viper

// NewCommand builds the root "tplforge" command.
func NewCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tplforge",
		Short: "Resolve imports and macros in a declarative infrastructure document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			options, err := newOptions()
			if err != nil {
				return err
			}
			return run(ctx, options)
		},
	}

	configure(cmd)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func configure(cmd *cobra.Command) {
	vip = viper.New()

	cmd.Flags().StringP("root", "r", "",
		"Root document location (scheme:payload, file: by default).")
	_ = cmd.MarkFlagRequired("root")
	_ = vip.BindPFlag("root", cmd.Flags().Lookup("root"))

	cmd.Flags().String("format", "",
		"Root document format override (yaml or json); detected from the root location's extension when omitted.")
	_ = vip.BindPFlag("format", cmd.Flags().Lookup("format"))

	cmd.Flags().StringP("output", "o", "",
		"Output path for the rendered document; stdout when omitted.")
	_ = vip.BindPFlag("output", cmd.Flags().Lookup("output"))

	cmd.Flags().Bool("print-imports", false,
		"After a successful transform, print the import provenance log to stderr.")
	_ = vip.BindPFlag("print-imports", cmd.Flags().Lookup("print-imports"))

	configureConfigFile()
	klog.InitFlags(nil)
}

func configureConfigFile() {
	vip.AutomaticEnv()
	cfgFile := os.Getenv("TPLFORGE_CONFIG")
	if cfgFile == "" {
		homeDir, _ := os.UserHomeDir()
		cfgFile = filepath.Join(homeDir, DefaultConfigFileName)
		if _, err := os.Lstat(cfgFile); os.IsNotExist(err) {
			return
		}
	}
	vip.AddConfigPath(filepath.Dir(cfgFile))
	vip.SetConfigName(filepath.Base(cfgFile))
	vip.SetConfigType("yaml")
	if err := vip.ReadInConfig(); err != nil {
		klog.Warningf("non-fatal error loading configuration file %s: %v", cfgFile, err)
		return
	}
	klog.Infof("configuration file %s will be used", cfgFile)
}

func newOptions() (*Options, error) {
	o := &Options{}
	if err := vip.Unmarshal(o); err != nil {
		return nil, fmt.Errorf("parsing options: %w", err)
	}
	return o, nil
}

// defaultLoader wires every location scheme handler SPEC_FULL.md
// lists, for real CLI use (tests build a narrower loader directly).
func defaultLoader(ctx context.Context) (*location.Loader, error) {
	s3Handler, err := s3.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing s3 client: %w", err)
	}
	ssmParamHandler, err := ssm.NewParamHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing ssm client: %w", err)
	}
	ssmPathHandler, err := ssm.NewPathHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing ssm client: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	return location.NewLoader(
		file.New(),
		s3Handler,
		httploc.New(),
		ssmParamHandler,
		ssmPathHandler,
		env.New(),
		gitloc.New(wd),
		random.New(),
		filehash.New(),
		literal.New(),
	), nil
}

func run(ctx context.Context, options *Options) error {
	loader, err := defaultLoader(ctx)
	if err != nil {
		return err
	}

	raw, resolved, err := loader.Load(ctx, options.Root, nil)
	if err != nil {
		return fmt.Errorf("loading root document %s: %w", options.Root, err)
	}
	rootDoc := raw.Doc
	if options.Format != "" {
		rootDoc, err = document.Parse([]byte(raw.Data), document.Format(options.Format))
		if err != nil {
			return fmt.Errorf("parsing root document as %s: %w", options.Format, err)
		}
	}

	out, err := transform.Transform(ctx, loader, rootDoc, resolved.String())
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if options.PrintImports {
		printImports(out)
	}

	rendered, err := document.Dump(out)
	if err != nil {
		return fmt.Errorf("rendering output: %w", err)
	}

	if options.Output == "" {
		_, err = os.Stdout.Write(rendered)
		return err
	}
	return os.WriteFile(options.Output, rendered, 0o644)
}

// printImports renders Metadata.iidy.Imports as a table to stderr
// (SPEC_FULL.md §4 "--resolve-style dry output").
func printImports(out *document.Document) {
	imports, ok := out.Get("Metadata")
	if !ok {
		return
	}
	imports, ok = imports.Get("iidy")
	if !ok {
		return
	}
	imports, ok = imports.Get("Imports")
	if !ok || imports.Kind != document.KindSeq {
		return
	}
	fmt.Fprintln(os.Stderr, "KEY\tFROM\tIMPORTED\tSHA256")
	for _, rec := range imports.Seq {
		key, _ := mustField(rec, "key")
		from, _ := mustField(rec, "from")
		imported, _ := mustField(rec, "imported")
		digest, _ := mustField(rec, "sha256Digest")
		fmt.Fprintf(os.Stderr, "%s\t%s\t%s\t%s\n", key, from, imported, digest)
	}
}

func mustField(d *document.Document, key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

// Version is stamped at build time via -ldflags.
var Version = "dev"
