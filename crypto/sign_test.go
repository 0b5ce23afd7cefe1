package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := map[string]interface{}{"action": "PETITION_SIGN", "proposalId": "abc"}
	sig, err := Sign(msg, priv)
	require.NoError(t, err)
	require.True(t, Verify(msg, sig, pub))
}

func TestVerifyRejectsAlteredMessage(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := map[string]interface{}{"action": "PETITION_SIGN"}
	sig, err := Sign(msg, priv)
	require.NoError(t, err)

	altered := map[string]interface{}{"action": "PETITION_SIGN_ALTERED"}
	require.False(t, Verify(altered, sig, pub))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	_, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := map[string]interface{}{"action": "PETITION_SIGN"}
	sig, err := Sign(msg, priv)
	require.NoError(t, err)
	require.False(t, Verify(msg, sig, otherPub))
}

func TestFingerprintPublicKeyStable(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	fp1, err := FingerprintPublicKey(pub)
	require.NoError(t, err)
	fp2, err := FingerprintPublicKey("  " + pub + "  \n")
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
	require.Len(t, fp1, 64)
}
