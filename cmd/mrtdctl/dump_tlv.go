package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

var dumpTLVMaxValue int

var tlvCmd = &cobra.Command{
	Use:   "tlv",
	Short: "Raw BER/DER TLV inspection",
}

var tlvDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Pretty-print a file's BER/DER TLV tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTLVDump,
}

func init() {
	tlvDumpCmd.Flags().IntVar(&dumpTLVMaxValue, "max-value", 32, "max primitive value bytes to print (0 = unlimited)")
	tlvCmd.AddCommand(tlvDumpCmd)
	rootCmd.AddCommand(tlvCmd)
}

func runTLVDump(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	rest := data
	for len(rest) > 0 {
		node, remainder, err := tlv.Decode(rest)
		if err != nil {
			return fmt.Errorf("decode TLV: %w", err)
		}
		printNode(cmd, node, 0)
		rest = remainder
	}
	return nil
}

func printNode(cmd *cobra.Command, n tlv.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Tag.Constructed() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s (constructed, %d children)\n", indent, tagString(n.Tag), len(n.Children))
		for _, c := range n.Children {
			printNode(cmd, c, depth+1)
		}
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s (%d bytes): %s\n", indent, tagString(n.Tag), len(n.Value), hexPreview(n.Value, dumpTLVMaxValue))
}

func tagString(t tlv.Tag) string {
	return fmt.Sprintf("%02X", uint32(t))
}

func hexPreview(b []byte, max int) string {
	if max > 0 && len(b) > max {
		return hex.EncodeToString(b[:max]) + "..."
	}
	return hex.EncodeToString(b)
}
