package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationSet(t *testing.T) {
	t.Parallel()
	readWrite := OperationRead.Union(OperationWrite)
	require.True(t, readWrite.Has(OperationRead))
	require.True(t, readWrite.Has(OperationWrite))
	require.False(t, readWrite.Has(OperationConnect))
	require.False(t, readWrite.Has(OperationRead|OperationConnect))
	require.Equal(t, OperationRead, readWrite.Subtract(OperationWrite))
	require.Equal(t, OperationWrite, readWrite.Intersect(OperationWrite|OperationConnect))
	require.True(t, OperationNone.IsEmpty())
	require.True(t, readWrite.Subtract(readWrite).IsEmpty())
	require.Equal(t, "none", OperationNone.String())
	require.Equal(t, "read|write", readWrite.String())
	require.Equal(t, "read|write|connect", OperationAll.String())
}
