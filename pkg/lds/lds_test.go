package lds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

func TestDG1RoundTrip(t *testing.T) {
	mrz := "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<L898902C36UTO7408122F1204159ZE184226B<<<<<10"

	parsed, err := ParseMRZ(mrz)
	require.NoError(t, err)
	assert.Equal(t, mrz, parsed.Format())

	encoded := Wrap(DG1{MRZ: parsed})
	assert.Equal(t, []byte{0x61, 0x5B, 0x5F, 0x1F, 0x58}, encoded[:5])

	decoded, err := DecodeDG1(encoded)
	require.NoError(t, err)
	assert.Equal(t, parsed, decoded.MRZ)

	reencoded := Wrap(decoded)
	assert.Equal(t, encoded, reencoded)
}

func TestDG11EmptyListQuirkRoundTrips(t *testing.T) {
	name := "<<"
	dob := "19711019"
	d := DG11{
		NameOfHolder:    &name,
		FullDateOfBirth: &dob,
		PlaceOfBirth:    []string{""},
	}

	encoded := Wrap(d)
	assert.Equal(t, tlv.TagDG11, tlv.Tag(encoded[0]))

	decoded, err := DecodeDG11(encoded)
	require.NoError(t, err)
	assert.Equal(t, "<<", *decoded.NameOfHolder)
	assert.Equal(t, "19711019", *decoded.FullDateOfBirth)
	assert.Equal(t, []string{""}, decoded.PlaceOfBirth)

	assert.Equal(t, encoded, Wrap(decoded))
}

func TestDG12RoundTrip(t *testing.T) {
	authority := "UTOPIA MINISTRY"
	dateOfIssue := "20230401"
	d := DG12{
		IssuingAuthority: &authority,
		DateOfIssue:      &dateOfIssue,
		OtherPersons:     []string{"SMITH<<JOHN", "DOE<<JANE"},
	}

	encoded := Wrap(d)
	decoded, err := DecodeDG12(encoded)
	require.NoError(t, err)
	assert.Equal(t, authority, *decoded.IssuingAuthority)
	assert.Equal(t, dateOfIssue, *decoded.DateOfIssue)
	assert.Equal(t, d.OtherPersons, decoded.OtherPersons)
	assert.Equal(t, encoded, Wrap(decoded))
}

func TestCOMRoundTrip(t *testing.T) {
	c := COM{
		LDSVersion:     "0107",
		UnicodeVersion: "040000",
		TagList:        []tlv.Tag{tlv.TagDG1, tlv.TagDG2, tlv.TagDG14},
	}
	encoded := Wrap(c)
	decoded, err := DecodeCOM(encoded)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
	assert.Equal(t, encoded, Wrap(decoded))
}

func TestDG14PACEInfoRoundTrip(t *testing.T) {
	paceInfo, err := NewPACEInfo("0.4.0.127.0.7.2.2.4.2.2", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, KindPACEInfo, paceInfo.Kind)

	keyID := 1
	caInfo, err := NewChipAuthenticationInfo("0.4.0.127.0.7.2.2.3.1.2", 1, &keyID)
	require.NoError(t, err)
	assert.Equal(t, KindChipAuthenticationInfo, caInfo.Kind)

	d := DG14{Infos: []SecurityInfo{paceInfo, caInfo}}
	encoded := Wrap(d)

	decoded, err := DecodeDG14(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Infos, 2)

	assert.Equal(t, paceInfo.OID, decoded.Infos[0].OID)
	assert.Equal(t, KindPACEInfo, decoded.Infos[0].Kind)
	require.NotNil(t, decoded.Infos[0].Version)
	assert.Equal(t, 2, *decoded.Infos[0].Version)

	assert.Equal(t, caInfo.OID, decoded.Infos[1].OID)
	assert.Equal(t, KindChipAuthenticationInfo, decoded.Infos[1].Kind)
	require.NotNil(t, decoded.Infos[1].KeyID)
	assert.Equal(t, 1, *decoded.Infos[1].KeyID)
}

func TestClassifyCAPublicKeyInfoArc(t *testing.T) {
	assert.Equal(t, KindChipAuthenticationPublicKeyInfo, classify("0.4.0.127.0.7.2.2.3.2.1"))
	assert.Equal(t, KindTerminalAuthenticationInfo, classify("0.4.0.127.0.7.2.2.2"))
	assert.Equal(t, KindActiveAuthenticationInfo, classify("2.23.136.1.1.5"))
	assert.Equal(t, KindUnknown, classify("1.2.3.4"))
}
