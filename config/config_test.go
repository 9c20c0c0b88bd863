package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "set Owner")
	require.FileExists(t, path)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, uint64(1), cfg.PlatformFeePercent)
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
RPCAddress = ":9000"
DataDir = "/tmp/escrowd-test"
Owner = "0x00000000000000000000000000000000000000aa"
PlatformFeePercent = 3
Env = "production"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.Equal(t, "/tmp/escrowd-test", cfg.DataDir)
	require.Equal(t, uint64(3), cfg.PlatformFeePercent)
	require.Equal(t, "production", cfg.Env)
	require.Equal(t, common.HexToAddress("0xaa"), cfg.OwnerAddress())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
Owner = "0x00000000000000000000000000000000000000aa"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, "./escrowd-data", cfg.DataDir)
	require.Equal(t, uint64(1), cfg.PlatformFeePercent)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing owner",
			body: `DataDir = "/tmp/x"`,
			want: "Owner address is required",
		},
		{
			name: "malformed owner",
			body: `Owner = "not-hex"`,
			want: "not a valid hex address",
		},
		{
			name: "zero owner",
			body: `Owner = "0x0000000000000000000000000000000000000000"`,
			want: "zero address",
		},
		{
			name: "fee above cap",
			body: `
Owner = "0x00000000000000000000000000000000000000aa"
PlatformFeePercent = 6
`,
			want: "PlatformFeePercent",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
