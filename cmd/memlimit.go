package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharptier/cms/internal/service"
)

var memlimitCmd = &cobra.Command{
	Use:   "memlimit",
	Short: "Print a memory cap in MB for this machine",
	Long: `Print min(70% of total memory, 80% of free memory) in megabytes,
clamped to [1000, 32000], as a bare integer with no trailing newline.
Deployment scripts read it to size the server's memory limit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		total, free, err := service.SystemMemoryMB()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), service.MemoryLimitMB(total, free))
		return err
	},
}

func init() {
	rootCmd.AddCommand(memlimitCmd)
}
