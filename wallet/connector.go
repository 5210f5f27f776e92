// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"strings"

	"github.com/33cn/raffle/common/address"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// KeyConnector dials a JSON-RPC endpoint and signs with a local private key.
// Without a key the session is read-only; Address then names the watched account.
type KeyConnector struct {
	RPCAddr    string
	PrivateKey string
	Address    string
}

// Connect 连接节点并加载私钥
func (k *KeyConnector) Connect(ctx context.Context) (*Session, error) {
	cli, err := ethclient.DialContext(ctx, k.RPCAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", k.RPCAddr)
	}
	session := &Session{Backend: cli}
	if k.PrivateKey == "" {
		if k.Address != "" {
			addr, err := address.NewAddrFromString(k.Address)
			if err != nil {
				cli.Close()
				return nil, err
			}
			session.Address = addr
		}
		return session, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(k.PrivateKey, "0x"))
	if err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "load private key")
	}
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "get chain id")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "new transactor")
	}
	session.Address = opts.From
	session.Transactor = opts
	return session, nil
}
