package cmd

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/util"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	baseDir string
	errFile string
)

var rootCmd = &cobra.Command{
	Use:   "testbedos",
	Short: "CLI for the testbed orchestration daemon",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		baseDir = viper.GetString("base-dir")

		var (
			errFile = viper.GetString("log.error-file")
			errOut  = viper.GetBool("log.error-stderr")
		)

		if err := util.InitFatalLogWriter(errFile, errOut); err != nil {
			return fmt.Errorf("unable to initialize fatal log writer: %w", err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		util.CloseLogWriter()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage: true, // don't print help when subcommands return an error
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("log.error-stderr", false, "log fatal errors to STDERR")

	uid, home := getCurrentUserInfo()

	if uid == "0" {
		os.MkdirAll("/etc/testbedos", 0755)
		os.MkdirAll("/var/log/testbedos", 0755)

		rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "/etc/testbedos", "directory holding this host's mode/host/cluster config files")
		rootCmd.PersistentFlags().StringVar(&errFile, "log.error-file", "/var/log/testbedos/error.log", "log fatal errors to file")
	} else {
		rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", fmt.Sprintf("%s/.testbedos", home), "directory holding this host's mode/host/cluster config files")
		rootCmd.PersistentFlags().StringVar(&errFile, "log.error-file", fmt.Sprintf("%s/.testbedos.err", home), "log fatal errors to file")
	}

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")

	uid, home := getCurrentUserInfo()

	if uid != "0" {
		viper.AddConfigPath(home + "/.config/testbedos")
	}

	viper.AddConfigPath("/etc/testbedos")

	viper.SetEnvPrefix("TESTBEDOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func getCurrentUserInfo() (string, string) {
	u, err := user.Current()
	if err != nil {
		panic("unable to determine current user: " + err.Error())
	}

	var (
		uid  = u.Uid
		home = u.HomeDir
		sudo = os.Getenv("SUDO_USER")
	)

	// Only trust `SUDO_USER` env variable if we're currently running as root and,
	// if set, use it to lookup the actual user that ran the sudo command.
	if u.Uid == "0" && sudo != "" {
		u, err := user.Lookup(sudo)
		if err != nil {
			panic("unable to lookup sudo user: " + err.Error())
		}

		uid = u.Uid
		home = u.HomeDir
	}

	return uid, home
}
