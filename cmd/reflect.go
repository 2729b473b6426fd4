package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newReflectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Run one reflection pass and save the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to save memory: %w", cerr)
				}
			}()

			report := s.kernel.Reflect(cmd.Context())
			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
