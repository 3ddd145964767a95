// Command osi packages a compiled application into a native platform
// package: an Android APK tree or a macOS application bundle.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	osipack "github.com/osiris-apis/osi-sub000"
)

var (
	configPath string
	targetDir  string
	release    bool
	verbose    bool

	sourceDirs   []string
	resourceDirs []string
	assetDirs    []string
)

func main() {
	root := &cobra.Command{
		Use:           "osi",
		Short:         "Package applications for Android and macOS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "osiris.toml", "project configuration file")
	root.PersistentFlags().StringVar(&targetDir, "target-dir", "target", "cargo target output directory")
	root.PersistentFlags().BoolVar(&release, "release", false, "build with the release profile")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")

	build := &cobra.Command{
		Use:   "build [android|macos]",
		Short: "Build the platform package",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBuild,
	}
	build.Flags().StringArrayVar(&sourceDirs, "source-dir", nil, "JVM-language source root (repeatable)")
	build.Flags().StringArrayVar(&resourceDirs, "resource-dir", nil, "Android resource root (repeatable)")
	build.Flags().StringArrayVar(&assetDirs, "asset-dir", nil, "Android asset directory (repeatable)")
	root.AddCommand(build)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "osi:", err)
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := osipack.LoadConfig(configPath)
	if err != nil {
		return err
	}
	platform := ""
	if len(args) == 1 {
		platform = args[0]
	}
	pipeline, err := osipack.PipelineFor(cfg, platform, osipack.PipelineOptions{Log: logger})
	if err != nil {
		return err
	}

	return pipeline.Build(cmd.Context(), &osipack.BuildRequest{
		TargetDir:    targetDir,
		Release:      release,
		SourceDirs:   sourceDirs,
		ResourceDirs: resourceDirs,
		AssetDirs:    assetDirs,
		KeystorePass: os.Getenv("OSI_KEYSTORE_PASS"),
		KeyPass:      os.Getenv("OSI_KEY_PASS"),
	})
}
