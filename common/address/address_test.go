// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package address

import (
	"errors"
	"testing"

	"github.com/33cn/raffle/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAddress(t *testing.T) {
	assert.Nil(t, CheckAddress("0xa42431Da868c58877a627CC71Dc95F01bf40c196"))
	assert.Nil(t, CheckAddress("0xa42431da868c58877a627cc71dc95f01bf40c196"))

	err := CheckAddress("0xAAA")
	assert.True(t, errors.Is(err, types.ErrInvalidAddress))
	// cached result
	err = CheckAddress("0xAAA")
	assert.True(t, errors.Is(err, types.ErrInvalidAddress))
	assert.NotNil(t, CheckAddress(""))
}

func TestNewAddrFromString(t *testing.T) {
	addr, err := NewAddrFromString("0xbe807dddb074639cd9fa61b47676c064fc50d62c")
	require.Nil(t, err)
	assert.True(t, Equal("0xBe807Dddb074639cD9fA61b47676c064fc50D62C", addr.Hex()))

	_, err = NewAddrFromString("not an address")
	assert.NotNil(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("0xAbC", "0xabc"))
	assert.True(t, Equal(" 0xABC", "0xabc "))
	assert.False(t, Equal("0xabc", "0xabd"))
	assert.False(t, Equal("", ""))
	assert.False(t, Equal("0xabc", ""))
}
