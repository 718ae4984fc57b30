package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig_Validate(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, uint64(1_500_000_000_000-200_000_000_000-125_000_000), cfg.Blockchain.ExtrinsicWeightCeiling())

	track, ok := cfg.Referenda.Track(cfg.Referenda.RankWeighedTrack)
	require.True(t, ok)
	require.Equal(t, SteppedDecreasing, track.MinApproval.Kind)

	_, ok = cfg.Referenda.Track(99)
	require.False(t, ok)
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Communities.PalletId = "short"
	require.Error(t, cfg.Validate())

	cfg = GetDefaultConfig()
	cfg.Referenda.Tracks = append(cfg.Referenda.Tracks, cfg.Referenda.Tracks[0])
	require.Error(t, cfg.Validate())

	cfg = GetDefaultConfig()
	cfg.Blockchain.OnInitializeBudget = cfg.Blockchain.MaxBlockRefTime
	require.Error(t, cfg.Validate())
}

func TestMakeConfigFromFile_Yaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	content := `
dataDir: /var/lib/communities
communities:
  palletId: "py/comms"
  maxProposals: 4
  maxCallLen: 1024
  maxInlineCallLen: 64
  registrars:
    - "0x0101010101010101010101010101010101010101010101010101010101010101"
referenda:
  adminTrack: 0
  memberCountTrack: 0
  assetWeighedTrack: 0
  rankWeighedTrack: 0
  tracks:
    - id: 0
      name: only
      maxDeciding: 1
      decisionPeriod: 5
      minApproval:
        kind: linear
        length: "1"
        floor: "0.5"
        ceil: "1"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("COMMUNITIES_VERBOSITY", "5")

	cfg, err := MakeConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/communities", cfg.DataDir)
	require.Equal(t, 5, cfg.Verbosity)
	require.Equal(t, "py/comms", cfg.Communities.PalletId)
	require.Equal(t, uint32(4), cfg.Communities.MaxProposals)
	require.Len(t, cfg.Communities.Registrars, 1)
	require.Len(t, cfg.Referenda.Tracks, 1)
	require.True(t, cfg.Referenda.Tracks[0].MinApproval.Floor.Equal(decimal.RequireFromString("0.5")))
	require.Equal(t, uint64(10), cfg.Ledger.ExistentialDeposit)
}

func TestMakeConfigFromFile_Json(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dataDir":"x","ledger":{"existentialDeposit":3}}`), 0600))

	cfg, err := MakeConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "x", cfg.DataDir)
	require.Equal(t, uint64(3), cfg.Ledger.ExistentialDeposit)

	_, err = MakeConfigFromFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
