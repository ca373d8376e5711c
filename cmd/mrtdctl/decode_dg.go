package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-emrtd/mrtdcore/pkg/cbeff"
	"github.com/go-emrtd/mrtdcore/pkg/iso19794"
	"github.com/go-emrtd/mrtdcore/pkg/iso39794"
	"github.com/go-emrtd/mrtdcore/pkg/lds"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

var dgCmd = &cobra.Command{
	Use:   "dg",
	Short: "Data group (LDS file) inspection",
}

var dgDecodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode an EF.COM or data group file and print its fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runDGDecode,
}

func init() {
	dgCmd.AddCommand(dgDecodeCmd)
	rootCmd.AddCommand(dgCmd)
}

func runDGDecode(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	node, err := tlv.DecodeOne(data)
	if err != nil {
		return fmt.Errorf("decode outer TLV: %w", err)
	}
	out := cmd.OutOrStdout()

	switch node.Tag {
	case tlv.TagCOM:
		com, err := lds.DecodeCOM(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "EF.COM: LDS %q, Unicode %q, tags %v\n", com.LDSVersion, com.UnicodeVersion, com.TagList)
	case tlv.TagDG1:
		dg1, err := lds.DecodeDG1(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "DG1: %s\n", dg1.MRZ.Format())
	case tlv.TagDG11:
		dg11, err := lds.DecodeDG11(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "DG11: %+v\n", dg11)
	case tlv.TagDG12:
		dg12, err := lds.DecodeDG12(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "DG12: %+v\n", dg12)
	case tlv.TagDG14:
		dg14, err := lds.DecodeDG14(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "DG14: %d SecurityInfo entries\n", len(dg14.Infos))
	case tlv.TagDG2, tlv.TagDG3, tlv.TagDG4:
		return decodeBiometricDG(out, node.Tag, data)
	default:
		fmt.Fprintf(out, "unrecognised outer tag %02X (%d bytes content)\n", uint32(node.Tag), len(node.Value))
	}
	return nil
}

// decodeBiometricDG unwraps DG2/3/4's CBEFF BIT group and decodes each
// member's biometric data block. The BDB's own outer tag tells us
// whether it is an ISO/IEC 19794 fixed-layout record (5F2E) or an
// ISO/IEC 39794 ASN.1 record (7F2E); nothing in the CBEFF header
// itself names the biometric modality.
func decodeBiometricDG(out interface{ Write([]byte) (int, error) }, tag tlv.Tag, data []byte) error {
	content, err := lds.Unwrap(data, tag)
	if err != nil {
		return err
	}
	bits, err := cbeff.DecodeBITGroup(content)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d biometric information template(s)\n", len(bits))
	for i, bit := range bits {
		fmt.Fprintf(out, "  [%d] header tag %02X, %d fields, statically protected: %v\n",
			i, uint32(bit.Header.TemplateTag), len(bit.Header.Fields), bit.StaticallyProtected)
		switch bit.BDB.Tag {
		case cbeff.TagBDBPrimitive:
			describeISO19794(out, tag, bit.BDB.Data)
		case cbeff.TagBDBConstructed:
			describeISO39794(out, tag, bit.BDB.Data)
		default:
			fmt.Fprintf(out, "      BDB: unrecognised tag %02X, %d bytes\n", uint32(bit.BDB.Tag), len(bit.BDB.Data))
		}
	}
	return nil
}

func describeISO19794(out interface{ Write([]byte) (int, error) }, dg tlv.Tag, data []byte) {
	switch dg {
	case tlv.TagDG3:
		rec, err := iso19794.DecodeFingerRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 19794-4 finger record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 19794-4 finger record, %d image(s)\n", len(rec.Images))
	case tlv.TagDG4:
		rec, err := iso19794.DecodeIrisRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 19794-6 iris record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 19794-6 iris record, %d biometric subtype(s)\n", len(rec.BiometricSubtypes))
	default:
		rec, err := iso19794.DecodeFaceRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 19794-5 face record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 19794-5 face record, %d image(s)\n", len(rec.Images))
	}
}

func describeISO39794(out interface{ Write([]byte) (int, error) }, dg tlv.Tag, data []byte) {
	switch dg {
	case tlv.TagDG3:
		rec, err := iso39794.DecodeFingerRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 39794-4 finger record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 39794-4 finger record, %d representation(s)\n", len(rec.Representations))
	case tlv.TagDG4:
		rec, err := iso39794.DecodeIrisRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 39794-6 iris record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 39794-6 iris record, %d representation(s)\n", len(rec.Representations))
	default:
		rec, err := iso39794.DecodeFaceRecord(data)
		if err != nil {
			fmt.Fprintf(out, "      BDB: ISO/IEC 39794-5 face record: %v\n", err)
			return
		}
		fmt.Fprintf(out, "      BDB: ISO/IEC 39794-5 face record, %d representation(s)\n", len(rec.Representations))
	}
}
