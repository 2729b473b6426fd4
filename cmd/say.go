package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Process a single turn and print the reply",
		Args:  cobra.MinimumNArgs(1),
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

			res, err := s.kernel.ProcessTurn(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			logTurn(s.log, res)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return err
		},
	}
}
