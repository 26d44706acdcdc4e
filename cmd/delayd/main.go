package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var BuiltVersion = "dev"

func main() {
	config := viper.New()
	config.SetEnvPrefix("DELAYD")
	config.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "delayd",
		Short:         "Track keys until they time out",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("fancy-logs", false, "use a colored console logger")
	cmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotating it")
	cmd.PersistentFlags().Int("log-max-size", 100, "size in megabytes of the log file before it gets rotated")
	cmd.PersistentFlags().Int("log-max-backups", 3, "number of rotated log files to keep")
	cmd.PersistentFlags().Int("log-max-age", 28, "number of days to keep rotated log files")
	cmd.PersistentFlags().Uint64("map-limit", 10000, "number of deletions after which internal maps are shrunk")
	for _, name := range []string{"log-level", "fancy-logs", "log-file", "log-max-size", "log-max-backups", "log-max-age", "map-limit"} {
		config.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}

	cmd.AddCommand(serveCommand(config))
	cmd.AddCommand(watchCommand(config))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Println(BuiltVersion)
		},
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
