// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package trace

import (
	"bytes"
	"testing"

	"github.com/evoplk/plk/traversal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadDescriptorRoundTrip(t *testing.T) {
	entries := []traversal.Entry{
		{P: 4, Q: 0, R: 1, Case: traversal.TipTip},
		{P: 5, Q: 4, R: 2, Case: traversal.TipInner},
		{P: 6, Q: 5, R: 3, Case: traversal.InnerInner},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDescriptor(&buf, entries))
	assert.NotZero(t, buf.Len())

	got, err := ReadDescriptor(&buf)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadDescriptorEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDescriptor(&buf, nil))
	got, err := ReadDescriptor(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}
