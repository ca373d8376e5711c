// Command mrtdctl is a file-in/file-out diagnostic CLI over this
// module's codecs and protocols: decode a data group, dump a raw BER
// tree, or verify a Document Security Object against data group files
// already on disk. It never talks to a card — that stays the caller's
// job, through pkg/card's Transmitter interface — and it never mints,
// personalises, or issues anything.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mrtdctl",
	Short: "Diagnostic CLI for eMRTD LDS/CBEFF/SOd files",
	Long: `mrtdctl decodes and verifies the on-disk artifacts this module's
packages read off a passport's logical data structure: data groups,
raw BER/DER TLV blobs, and the Document Security Object (EF.SOd).

It is a thin collaborator over the library, not a passport reader —
nothing here talks to a card.`,
}

var profilePath string

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "path to a YAML defaults file (see Profile)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mrtdctl:", err)
		os.Exit(1)
	}
}
