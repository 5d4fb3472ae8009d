package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/drivers/i2c/cmdlist"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/config"

	"github.com/spf13/cobra"
)

func newVoltageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voltage <mV>",
		Short: "Show the charger register byte for a charge voltage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mV, code, err := config.ParseVoltage(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "voltage: %d mV, voltage config: 0x%02x, programs: %d mV\n",
				mV, code, bq24193.DecodeChargeVoltage(code))
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode an I2C command list",
		Long: `Decode a packed command list given as hex, e.g.
  i2cmitm decode "40 01 04 c1 01"
  i2cmitm decode 0x40,0x01,0x04,0xc1,0x01`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseHex(strings.Join(args, " "))
			if err != nil {
				return err
			}
			cmds, derr := cmdlist.DecodeAll(raw)
			l := logging.NewLine(logging.MaxLine)
			cmdlist.AppendCommands(l, cmds)
			fmt.Fprintf(cmd.OutOrStdout(), "%d commands, receives %d bytes: [%s]\n", len(cmds), cmdlist.ReceiveTotal(cmds), l)
			return derr
		},
	}
}

// parseHex accepts "0x" prefixes and any mix of space and comma separators.
func parseHex(s string) ([]byte, error) {
	var b strings.Builder
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' }) {
		f = strings.TrimPrefix(strings.ToLower(f), "0x")
		if len(f)%2 == 1 {
			f = "0" + f
		}
		b.WriteString(f)
	}
	raw, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return raw, nil
}
