package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/render"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string   `json:"version" yaml:"version"`
	Commit    string   `json:"commit" yaml:"commit"`
	BuildDate string   `json:"build_date" yaml:"build_date"`
	Formats   []string `json:"supported_formats" yaml:"supported_formats"`
	Policies  []string `json:"persist_policies" yaml:"persist_policies"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(cmd.Flag("output").Value.String())
	if err != nil {
		return exitError(2, err)
	}
	if format == render.FormatTable {
		fmt.Fprintf(cmd.OutOrStdout(), "wrkboard %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	}
	info := versionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		Formats:   []string{"table", "json", "yaml"},
		Policies:  []string{"all", "changed"},
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format}).Render(info, nil, nil)
}
