package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-emrtd/mrtdcore/pkg/sod"
)

var (
	sodVerifyDGFiles []string
	sodVerifyTrust   string
)

var sodCmd = &cobra.Command{
	Use:   "sod",
	Short: "Document Security Object (EF.SOd) inspection",
}

var sodVerifyCmd = &cobra.Command{
	Use:   "verify <sod-file>",
	Short: "Verify an EF.SOd's signature and data group hashes",
	Args:  cobra.ExactArgs(1),
	RunE:  runSODVerify,
}

func init() {
	sodVerifyCmd.Flags().StringArrayVar(&sodVerifyDGFiles, "dg", nil,
		"data group to check, as N=path (repeatable)")
	sodVerifyCmd.Flags().StringVar(&sodVerifyTrust, "trust", "",
		"PEM file of CA certificates to chain the signer against")
	sodCmd.AddCommand(sodVerifyCmd)
	rootCmd.AddCommand(sodCmd)
}

func runSODVerify(cmd *cobra.Command, args []string) error {
	der, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	doc, err := sod.Parse(der)
	if err != nil {
		return fmt.Errorf("parse EF.SOd: %w", err)
	}

	dataGroups, err := loadDataGroups(sodVerifyDGFiles)
	if err != nil {
		return err
	}

	trustPath := sodVerifyTrust
	if trustPath == "" && profilePath != "" {
		profile, err := LoadProfile(profilePath)
		if err != nil {
			return err
		}
		trustPath = profile.Trust.AnchorsFile
	}

	cfg := sod.VerifyConfig{DataGroups: dataGroups}
	if trustPath != "" {
		pool, err := loadTrustAnchors(trustPath)
		if err != nil {
			return err
		}
		cfg.TrustAnchors = pool
	}

	out := cmd.OutOrStdout()
	if err := doc.Verify(cfg); err != nil {
		fmt.Fprintf(out, "FAIL: %v\n", err)
		return err
	}

	oid, err := doc.DigestAlgorithmOID()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "OK: signature and %d checked data group(s) verify, digest algorithm %s\n", len(dataGroups), oid)
	if cert := doc.Certificate(); cert != nil {
		fmt.Fprintf(out, "signer: %s (serial %s)\n", cert.Subject, cert.SerialNumber)
	}
	return nil
}

// loadDataGroups parses --dg N=path flags into the map Verify expects.
func loadDataGroups(specs []string) (map[int][]byte, error) {
	groups := make(map[int][]byte, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --dg %q, want N=path", spec)
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid --dg %q: %w", spec, err)
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", parts[1], err)
		}
		groups[n] = data
	}
	return groups, nil
}

func loadTrustAnchors(path string) (*x509.CertPool, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if pool.AppendCertsFromPEM(pemData) {
		return pool, nil
	}
	// Also accept a bare DER certificate, since CSCA distributions are
	// not always PEM-armored.
	if block, _ := pem.Decode(pemData); block == nil {
		if cert, err := x509.ParseCertificate(pemData); err == nil {
			pool.AddCert(cert)
			return pool, nil
		}
	}
	return nil, fmt.Errorf("no certificates parsed from %s", path)
}
