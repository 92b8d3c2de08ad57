package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "photo-annotation-tool",
	Short: "A web application for manual photo annotation with CSV export",
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/photo-annotation-tool/config.env)")
	if err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return
	}
}
