// Command hwpcat prints the text of HWP and HWPX documents.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/hwarang"
	"github.com/hanpama/hwarang/internal/config"
	"github.com/hanpama/hwarang/internal/logging"
)

var cfgFile string

// rootCmd prints the text of each file given
var rootCmd = &cobra.Command{
	Use:           "hwpcat <file>...",
	Short:         "Print the text of HWP and HWPX documents",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          cat,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to config file")
	flags.String("tables", "text", "table output: text or grid")
	flags.Bool("normalize", false, "apply Unicode NFC to the output")
	flags.Int("workers", 0, "batch concurrency (0 = one per CPU)")
	flags.Int64("max-file-size", hwarang.DefaultMaxFileSize, "refuse files larger than this many bytes")
	flags.Int64("max-stream-size", 0, "cap on a decompressed stream in bytes (0 = default)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-output-dir", "", "directory to write JSON log files to")

	viper.BindPFlag("tables", flags.Lookup("tables"))
	viper.BindPFlag("normalize", flags.Lookup("normalize"))
	viper.BindPFlag("workers", flags.Lookup("workers"))
	viper.BindPFlag("max_file_size", flags.Lookup("max-file-size"))
	viper.BindPFlag("max_stream_size", flags.Lookup("max-stream-size"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_output_dir", flags.Lookup("log-output-dir"))

	rootCmd.AddCommand(streamsCmd, infoCmd, batchCmd)
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hwpcat"))
		}
		viper.AddConfigPath("/etc/hwpcat")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("HWPCAT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setup loads the configuration, installs the logger and builds an extractor.
func setup() (*config.Config, *hwarang.Extractor, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
		return nil, nil, fmt.Errorf("could not set up logging: %w", err)
	}
	return cfg, hwarang.New(cfg.Extractor()), nil
}

func cat(cmd *cobra.Command, args []string) error {
	_, x, err := setup()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, path := range args {
		text, err := x.ExtractText(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if text != "" {
			fmt.Fprintln(out, text)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hwpcat:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates unreadable input (2) from protected documents (3).
func exitCode(err error) int {
	switch hwarang.KindOf(err) {
	case hwarang.KindPasswordProtected, hwarang.KindDecryptFailed:
		return 3
	case hwarang.KindFile:
		return 2
	}
	return 1
}
