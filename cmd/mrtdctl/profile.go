package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds mrtdctl's own defaults, loaded with --profile so repeated
// invocations against the same document set don't need every flag spelled
// out each time. Unlike the protocol configs in pkg/protocol/*, which are
// always passed explicitly by a caller, this is the one place in the
// module a YAML file drives behaviour — grounded on sdmconfig's
// internal/config package, down to the KnownFields(true) decode that
// rejects a typo'd key instead of silently ignoring it.
type Profile struct {
	Trust TrustConfig `yaml:"trust"`
}

type TrustConfig struct {
	// AnchorsFile is a default PEM bundle of CSCA certificates, used by
	// "sod verify" when --trust is not given on the command line.
	AnchorsFile string `yaml:"anchors_file"`
}

// LoadProfile reads and decodes path into a Profile, rejecting any key
// the struct above doesn't declare.
func LoadProfile(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}
	return &p, nil
}
