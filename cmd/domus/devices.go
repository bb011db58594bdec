package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/device"
)

var listAll bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the device repository",
}

var devicesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the repository contents with a devices file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quietLogging(cmd.ErrOrStderr())
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading devices file: %w", err)
		}
		devices, err := device.Parse(data)
		if err != nil {
			return err
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		repo, err := openRepository(cmd.Context(), cfg.Devices.Database)
		if err != nil {
			return err
		}
		defer repo.Close()

		n, err := repo.Import(cmd.Context(), devices)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d devices into %s\n", n, cfg.Devices.Database.Driver)
		return nil
	},
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the devices stored in the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		quietLogging(cmd.ErrOrStderr())
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		repo, err := openRepository(cmd.Context(), cfg.Devices.Database)
		if err != nil {
			return err
		}
		defer repo.Close()

		devices, err := repo.List(cmd.Context(), listAll)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tNAME\tTYPE\tROOM\tACTIVE\tALIASES")
		for _, d := range devices {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
				d.Key, d.Name, d.Type, d.Room, d.Active, strings.Join(d.Aliases, ", "))
		}
		return tw.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "domus %s\n", version)
	},
}

func init() {
	devicesListCmd.Flags().BoolVar(&listAll, "all", false, "include inactive devices")
	devicesCmd.AddCommand(devicesImportCmd, devicesListCmd)
}
