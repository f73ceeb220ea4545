package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blockgw",
		Short: "Inter-block API gateway for the PXR ecosystem",
		Long: `blockgw mediates API calls between PXR blocks: it identifies the caller,
resolves caller and callee catalogs, enforces the static permission matrix,
acquires API tokens from the access-control service, forwards the call to the
destination, and records an audit entry for every call made.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./blockgw.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd(version))
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("blockgw")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/blockgw")
	}

	viper.SetEnvPrefix("BLOCKGW")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
