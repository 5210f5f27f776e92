// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package account

import (
	"testing"

	"github.com/33cn/raffle/types"
	"github.com/stretchr/testify/assert"
)

func TestIsOwner(t *testing.T) {
	owner := "0xa42431Da868c58877a627CC71Dc95F01bf40c196"
	cases := []struct {
		conn string
		want bool
	}{
		{"0xa42431Da868c58877a627CC71Dc95F01bf40c196", true},
		{"0xA42431DA868C58877A627CC71DC95F01BF40C196", true},
		{"0xa42431da868c58877a627cc71dc95f01bf40c196", true},
		{"0xBe807Dddb074639cD9fA61b47676c064fc50D62C", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsOwner(c.conn, owner), c.conn)
	}
	assert.False(t, IsOwner("", ""))
	assert.False(t, IsOwner(owner, ""))
}

func TestResolve(t *testing.T) {
	conn := types.ConnectionState{Connected: true, Address: "0xCCC", NetworkID: 80001}
	role := Resolve(conn, "0xccc")
	assert.True(t, role.IsOwner)
	assert.Equal(t, "0xccc", role.Owner)

	role = Resolve(conn, "0xddd")
	assert.False(t, role.IsOwner)

	conn.Connected = false
	role = Resolve(conn, "0xccc")
	assert.False(t, role.IsOwner)
}
