// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "errors"

// 连接、读取和交易相关的错误
var (
	// ErrWrongNetwork 钱包连接的网络和配置的目标网络不一致, 禁止任何读写
	ErrWrongNetwork = errors.New("ErrWrongNetwork")
	// ErrNoSigner 没有可用于签名的会话
	ErrNoSigner = errors.New("ErrNoSigner")
	// ErrNotConnected 钱包尚未连接
	ErrNotConnected = errors.New("ErrNotConnected")
	// ErrRead 合约只读调用失败
	ErrRead = errors.New("ErrRead")
	// ErrQuery 索引服务查询失败
	ErrQuery = errors.New("ErrQuery")
	// ErrTransaction 交易被拒绝或者执行回滚
	ErrTransaction = errors.New("ErrTransaction")

	ErrNotOwner       = errors.New("ErrNotOwner")
	ErrGameNotOpen    = errors.New("ErrGameNotOpen")
	ErrGameStarted    = errors.New("ErrGameStarted")
	ErrGameFull       = errors.New("ErrGameFull")
	ErrInvalidParam   = errors.New("ErrInvalidParam")
	ErrInvalidAddress = errors.New("ErrInvalidAddress")
	ErrIsClosed       = errors.New("ErrIsClosed")
)

// IsFetchError 判断是否是单个轮询周期内可以忽略的读取错误
func IsFetchError(err error) bool {
	return errors.Is(err, ErrRead) || errors.Is(err, ErrQuery)
}
