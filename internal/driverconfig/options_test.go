package driverconfig

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsDefaultsMatchCodegenDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	opt := BindFlags(cmd)

	require.NoError(t, cmd.ParseFlags(nil))

	cg := opt.CodegenOptions()
	assert.Equal(t, 16, cg.GosubStackDepth)
	assert.True(t, cg.BoundsCheck)
	assert.Equal(t, "", opt.Input)
	assert.Equal(t, "", opt.Output)
	assert.False(t, opt.Verbose)
}

func TestBindFlagsParsesOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	opt := BindFlags(cmd)

	require.NoError(t, cmd.ParseFlags([]string{
		"--in", "program.json",
		"--out", "program.ssa",
		"--verbose",
		"--gosub-stack-depth", "64",
		"--bounds-check=false",
	}))

	assert.Equal(t, "program.json", opt.Input)
	assert.Equal(t, "program.ssa", opt.Output)
	assert.True(t, opt.Verbose)
	cg := opt.CodegenOptions()
	assert.Equal(t, 64, cg.GosubStackDepth)
	assert.False(t, cg.BoundsCheck)
}
