package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministicRegardlessOfKeyOrder(t *testing.T) {
	a := map[string]interface{}{"type": "REGISTER", "actorId": "fp1", "timestamp": 10}
	b := map[string]interface{}{"actorId": "fp1", "timestamp": 10, "type": "REGISTER"}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}

func TestHashDiffersOnContentChange(t *testing.T) {
	a := map[string]interface{}{"type": "REGISTER"}
	b := map[string]interface{}{"type": "REVOKE_IDENTITY"}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}

func TestStableStringifySortsNestedKeys(t *testing.T) {
	nested := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "a": 2},
		"list":  []interface{}{3, 2, 1},
	}
	out, err := StableStringify(nested)
	require.NoError(t, err)
	require.Equal(t, `{"list":[3,2,1],"outer":{"a":2,"z":1}}`, string(out))
}
