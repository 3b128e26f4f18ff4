package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/probelab/benchforge/internal/app/usecase"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered benchmark suites and their methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range registry.Names() {
			reg, _ := registry.Get(name)
			info, err := usecase.Discover(reg.Definition, reg.Concrete)
			if err != nil {
				return err
			}

			fmt.Printf("%s  %s against %s, default %d iterations\n",
				color.CyanString(name), info.Descriptor.Feature,
				info.Concrete.Symbol, info.Descriptor.DefaultIterations)
			for _, m := range info.Active {
				fmt.Printf("  %-12s %s\n", m.Name, m.Description)
			}
			for _, m := range info.Ignored {
				fmt.Printf("  %-12s %s (%s)\n", m.Name, m.Description,
					color.YellowString("ignored: %s", m.IgnoreReason))
			}
		}
		return nil
	},
}
