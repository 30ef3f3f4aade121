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
	"io"
	"os"

	"github.com/gopacket/gopacket/pcapgo"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balioune/ovs/pkg/classifier"
	"github.com/balioune/ovs/pkg/flow"
	"github.com/balioune/ovs/private/ruleset"
)

func newMatch() *cobra.Command {
	var flags struct {
		rules   string
		pcap    string
		include string
		inPort  uint16
		verbose bool
	}
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Replay a pcap file against a rule set",
		Long: `'match' loads a rule set, extracts a flow from every packet in the
capture and prints the highest-priority matching rule per packet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := parseInclude(flags.include)
			if err != nil {
				return err
			}
			logger, err := setupLog(flags.verbose)
			if err != nil {
				return errors.Wrap(err, "setting up logging")
			}
			defer logger.Sync()

			rules, err := ruleset.Load(flags.rules)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cls := classifier.New()
			for _, r := range rules {
				if displaced := cls.Insert(r); displaced != nil {
					logger.Warn("Rule displaced during load",
						zap.Stringer("rule", displaced))
				}
			}
			logger.Debug("Rule set loaded",
				zap.Int("rules", cls.Count()),
				zap.Int("exact", cls.CountExact()))

			f, err := os.Open(flags.pcap)
			if err != nil {
				return errors.Wrap(err, "opening capture")
			}
			defer f.Close()
			reader, err := pcapgo.NewReader(f)
			if err != nil {
				return errors.Wrap(err, "reading capture header")
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"#", "FLOW", "VERDICT"})

			extractor := flow.NewExtractor()
			var n, matched int
			for {
				data, _, err := reader.ReadPacketData()
				if err == io.EOF {
					break
				}
				if err != nil {
					return errors.Wrap(err, "reading packet")
				}
				n++
				fl, err := extractor.Extract(data, flags.inPort)
				if err != nil {
					logger.Warn("Skipping undecodable packet",
						zap.Int("packet", n), zap.Error(err))
					continue
				}
				verdict := "no match"
				if r := cls.Lookup(fl, inc); r != nil {
					matched++
					verdict = r.String()
					logger.Debug("Packet matched",
						zap.Int("packet", n),
						zap.Int("priority", r.Priority))
				}
				table.Append([]string{fmt.Sprint(n), fl.String(), verdict})
			}
			table.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d packets, %d matched\n", n, matched)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.rules, "rules", "", "rule set file (TOML)")
	cmd.Flags().StringVar(&flags.pcap, "pcap", "", "packet capture to replay")
	cmd.Flags().StringVar(&flags.include, "include", "all",
		"tables to consider: exact|wild|all")
	cmd.Flags().Uint16Var(&flags.inPort, "in-port", 0, "ingress port recorded in flows")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	cobra.CheckErr(cmd.MarkFlagRequired("rules"))
	cobra.CheckErr(cmd.MarkFlagRequired("pcap"))
	return cmd
}
