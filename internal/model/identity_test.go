package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestENBIDNormalizedMasksToNominalWidth(t *testing.T) {
	macro := ENBID{Kind: ENBIDMacro, Value: 0xFFFFFFFF}
	assert.Equal(t, uint32(0xFFFFF), macro.Normalized())

	home := ENBID{Kind: ENBIDHome, Value: 0xFFFFFFFF}
	assert.Equal(t, uint32(0xFFFFFFF), home.Normalized())
}

func TestENBIDEqualIgnoresBitsAboveNominalWidth(t *testing.T) {
	a := ENBID{PLMN: PLMN{MCC: "001", MNC: "01"}, Kind: ENBIDMacro, Value: 0x0000ABCD}
	b := ENBID{PLMN: PLMN{MCC: "001", MNC: "01"}, Kind: ENBIDMacro, Value: 0xFFF0ABCD}

	assert.True(t, a.Equal(b), "macro eNodeB IDs must compare equal once masked to 20 bits")
}

func TestENBIDEqualRequiresSamePLMNAndKind(t *testing.T) {
	a := ENBID{PLMN: PLMN{MCC: "001", MNC: "01"}, Kind: ENBIDMacro, Value: 1}
	b := ENBID{PLMN: PLMN{MCC: "002", MNC: "02"}, Kind: ENBIDMacro, Value: 1}
	c := ENBID{PLMN: PLMN{MCC: "001", MNC: "01"}, Kind: ENBIDHome, Value: 1}

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPLMNEqual(t *testing.T) {
	assert.True(t, PLMN{MCC: "001", MNC: "01"}.Equal(PLMN{MCC: "001", MNC: "01"}))
	assert.False(t, PLMN{MCC: "001", MNC: "01"}.Equal(PLMN{MCC: "001", MNC: "02"}))
}

func TestTAIEqual(t *testing.T) {
	p := PLMN{MCC: "001", MNC: "01"}
	assert.True(t, TAI{PLMN: p, TAC: 1}.Equal(TAI{PLMN: p, TAC: 1}))
	assert.False(t, TAI{PLMN: p, TAC: 1}.Equal(TAI{PLMN: p, TAC: 2}))
}
