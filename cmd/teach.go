package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTeachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teach <INTENT> <template>",
		Short: "Teach a response template for an intent",
		Long: `Adds a response template to an intent family. Placeholders are written in
brackets, for example:

  genesis teach FAREWELL "Until next time, [REF1]"`,
		Args: cobra.MinimumNArgs(2),
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

			stored, err := s.kernel.TeachPattern(cmd.Context(), "pattern "+strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "learned template %q\n", stored)
			return err
		},
	}
}
