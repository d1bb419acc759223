package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/atwork/pkg/protocol"
	"github.com/cgast/atwork/pkg/taskspec"
)

func newFixturesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "List the built-in specifications used in simulation mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := fixtureList()
			r := a.renderer()
			if r.json {
				return r.writeJSON(list)
			}
			for _, f := range list {
				fmt.Fprintf(a.stdout, "%s %s\n  %s\n", r.style(styleHeader, f.Type), r.style(styleDim, f.Name), f.Spec)
			}
			return nil
		},
	}
}

func fixtureList() []protocol.FixtureInfo {
	list := make([]protocol.FixtureInfo, 0, len(taskspec.TaskTypes))
	for _, t := range taskspec.TaskTypes {
		spec, err := taskspec.Fixture(t)
		if err != nil {
			continue
		}
		list = append(list, protocol.FixtureInfo{Type: string(t), Name: t.Name(), Spec: spec})
	}
	return list
}
