package exec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/plan"
)

func thresh() plan.Thresholds {
	return plan.Thresholds{
		MaxShortOne: 176, MaxShortMax: 1024,
		MaxBcopyOne: 4096, MaxBcopyMax: 32 << 10,
		MaxZcopyOne: 64 << 10, MDMaxReg: 1 << 20,
	}
}

func TestComputeFragmentationShortSingle(t *testing.T) {
	f := ComputeFragmentation(100, 4, thresh())
	require.Equal(t, SendShort, f.Mode)
	require.Equal(t, 1, f.Fragments)
	require.Equal(t, 100, f.FragmentLength)
}

func TestComputeFragmentationShortFragmented(t *testing.T) {
	f := ComputeFragmentation(500, 4, thresh())
	require.Equal(t, SendShort, f.Mode)
	require.Equal(t, 176, f.FragmentLength)
	require.Equal(t, 3, f.Fragments)
}

func TestComputeFragmentationBcopySingle(t *testing.T) {
	f := ComputeFragmentation(4096, 4, thresh())
	require.Equal(t, SendBcopy, f.Mode)
	require.Equal(t, 1, f.Fragments)
}

func TestComputeFragmentationBcopyFragmented(t *testing.T) {
	f := ComputeFragmentation(20000, 4, thresh())
	require.Equal(t, SendBcopy, f.Mode)
	require.Equal(t, 4096, f.FragmentLength)
	require.Equal(t, ceilDiv(20000, 4096), f.Fragments)
}

func TestComputeFragmentationZcopySingle(t *testing.T) {
	th := thresh()
	f := ComputeFragmentation(40000, 4, th)
	require.Equal(t, SendZcopy, f.Mode)
	require.Equal(t, 1, f.Fragments)
}

func TestComputeFragmentationZcopyFragmented(t *testing.T) {
	th := thresh()
	f := ComputeFragmentation(200000, 4, th)
	require.Equal(t, SendZcopy, f.Mode)
	require.Equal(t, th.MaxZcopyOne, f.FragmentLength)
}
