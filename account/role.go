// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package account 根据连接地址和合约 owner 计算当前账户的权限
package account

import (
	"github.com/33cn/raffle/common/address"
	"github.com/33cn/raffle/types"
)

// IsOwner the connected address is the contract owner, compared case-insensitively.
// An empty address on either side is never the owner.
func IsOwner(connAddr, ownerAddr string) bool {
	return address.Equal(connAddr, ownerAddr)
}

// Resolve derives the role for one cycle, a disconnected session is never privileged
func Resolve(conn types.ConnectionState, ownerAddr string) types.Role {
	return types.Role{
		IsOwner: conn.Connected && IsOwner(conn.Address, ownerAddr),
		Owner:   ownerAddr,
	}
}
