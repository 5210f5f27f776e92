// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoin(t *testing.T) {
	cases := map[string]string{
		"0.01":                 "10000000000000000",
		"1":                    "1000000000000000000",
		" 2.5 ":                "2500000000000000000",
		"0":                    "0",
		"0.000000000000000001": "1",
		"1000":                 "1000000000000000000000",
	}
	for in, want := range cases {
		v, err := ParseCoin(in)
		require.Nil(t, err, in)
		assert.Equal(t, want, v.String(), in)
	}

	for _, in := range []string{"", "-1", "abc", "0.0000000000000000001", "1e-19"} {
		_, err := ParseCoin(in)
		assert.True(t, errors.Is(err, ErrInvalidParam), in)
	}
}

func TestFormatCoin(t *testing.T) {
	assert.Equal(t, "0", FormatCoin(nil))
	assert.Equal(t, "0", FormatCoin(big.NewInt(0)))
	assert.Equal(t, "0.01", FormatCoin(big.NewInt(1e16)))
	assert.Equal(t, "1", FormatCoin(big.NewInt(1e18)))
	assert.Equal(t, "0.000000000000000001", FormatCoin(big.NewInt(1)))

	v, err := ParseCoin("12.345")
	require.Nil(t, err)
	assert.Equal(t, "12.345", FormatCoin(v))
}
