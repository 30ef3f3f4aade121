// Copyright 2026 Balioune Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/balioune/ovs/pkg/classifier"
	"github.com/balioune/ovs/private/ruleset"
)

func newDump() *cobra.Command {
	var flags struct {
		rules string
	}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the rules of a rule set file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := ruleset.Load(flags.rules)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cls := classifier.New()
			for _, r := range rules {
				if displaced := cls.Insert(r); displaced != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Warning: displaced %s\n", displaced)
				}
			}

			installed := make([]*classifier.Rule, 0, cls.Count())
			cls.ForEach(classifier.IncludeAll, func(r *classifier.Rule) {
				installed = append(installed, r)
			})
			sort.Slice(installed, func(i, j int) bool {
				return installed[i].Priority > installed[j].Priority
			})

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"PRIORITY", "WILDCARDS", "FIELDS"})
			for _, r := range installed {
				table.Append([]string{
					fmt.Sprint(r.Priority),
					r.Wildcards.String(),
					r.Flow.String(),
				})
			}
			table.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules, %d exact\n",
				cls.Count(), cls.CountExact())
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.rules, "rules", "", "rule set file (TOML)")
	cobra.CheckErr(cmd.MarkFlagRequired("rules"))
	return cmd
}
