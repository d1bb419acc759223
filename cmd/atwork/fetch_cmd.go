package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		test     string
		simulate bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Request a raw task specification from the referee box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.taskType(test)
			if err != nil {
				return err
			}
			f, err := a.fetcher(t, simulate)
			if err != nil {
				return err
			}
			raw, err := f.FetchRawSpec(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.renderer().writeJSON(map[string]string{"spec": raw})
			}
			_, err = fmt.Fprintln(a.stdout, raw)
			return err
		},
	}

	cmd.Flags().StringVar(&test, "test", "", "Task type used in simulation mode (default from config)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Use the built-in specification instead of the referee box")
	return cmd
}
