// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package address 地址校验以及比较
package address

import (
	"strings"

	"github.com/33cn/raffle/types"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

var checkAddressCache *lru.Cache

func init() {
	var err error
	checkAddressCache, err = lru.New(10240)
	if err != nil {
		panic(err)
	}
}

// CheckAddress 检查十六进制地址格式
func CheckAddress(addr string) error {
	if value, ok := checkAddressCache.Get(addr); ok {
		if value == nil {
			return nil
		}
		return value.(error)
	}
	var e error
	if !common.IsHexAddress(addr) {
		e = errors.Wrapf(types.ErrInvalidAddress, "%q", addr)
	}
	checkAddressCache.Add(addr, e)
	return e
}

// NewAddrFromString 解析地址
func NewAddrFromString(addr string) (common.Address, error) {
	if err := CheckAddress(addr); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(addr), nil
}

// Normalize lower-case form used for comparisons and map keys
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Equal case-insensitive comparison, empty addresses never match
func Equal(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	return a == b
}
