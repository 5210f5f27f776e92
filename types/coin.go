// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// coin conversation
const (
	// CoinDecimals 1 ether = 1e18 wei
	CoinDecimals int32 = 18
)

// ParseCoin converts a human decimal amount ("0.01") into base units (wei).
// Negative amounts and amounts finer than one wei are rejected.
func ParseCoin(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.Wrap(ErrInvalidParam, "empty amount")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidParam, "amount %q", amount)
	}
	if d.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "negative amount %q", amount)
	}
	wei := d.Shift(CoinDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, errors.Wrapf(ErrInvalidParam, "amount %q is below one base unit", amount)
	}
	v, ok := new(big.Int).SetString(wei.String(), 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidParam, "amount %q", amount)
	}
	return v, nil
}

// FormatCoin base units to a human decimal string without trailing zeros
func FormatCoin(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -CoinDecimals).String()
}
