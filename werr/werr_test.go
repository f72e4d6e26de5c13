package werr_test

import (
	"errors"
	"testing"

	"github.com/didwebvh/webvh-go/werr"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesVersionID(t *testing.T) {
	err := werr.New(werr.ChainIntegrity, "2-zAbc", "entryHash mismatch")
	require.Contains(t, err.Error(), "2-zAbc")
	require.Contains(t, err.Error(), "entryHash mismatch")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := werr.Wrap(werr.ExternalFailure, "1-zXyz", cause, "signer failed")
	require.ErrorIs(t, err, cause)
}

func TestIsMatchesKind(t *testing.T) {
	err := werr.New(werr.PolicyViolation, "3-zQq", "deactivated")
	require.True(t, werr.Is(err, werr.PolicyViolation))
	require.False(t, werr.Is(err, werr.Authorization))
}
