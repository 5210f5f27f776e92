// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package contract 游戏合约的读写封装
package contract

import (
	"context"
	"math"
	"math/big"
	"strings"

	"github.com/33cn/raffle/common/address"
	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/types"
	"github.com/33cn/raffle/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var clog = log.New("module", "contract")

// Provider hands out the session handles, normally *wallet.Wallet
type Provider interface {
	Reader() (wallet.Backend, error)
	Signer(ctx context.Context) (*bind.TransactOpts, error)
}

// Raffle 游戏合约
type Raffle struct {
	address  common.Address
	abi      abi.ABI
	provider Provider
}

// New 创建合约封装, addr 必须是合法的十六进制地址
func New(addr string, provider Provider) (*Raffle, error) {
	a, err := address.NewAddrFromString(addr)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(RaffleABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse abi")
	}
	return &Raffle{address: a, abi: parsed, provider: provider}, nil
}

// Address 合约地址
func (r *Raffle) Address() common.Address {
	return r.address
}

func (r *Raffle) bound(b wallet.Backend) *bind.BoundContract {
	return bind.NewBoundContract(r.address, r.abi, b, b, b)
}

func (r *Raffle) call(ctx context.Context, method string) ([]interface{}, error) {
	backend, err := r.provider.Reader()
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := r.bound(backend).Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, errors.Wrapf(types.ErrRead, "%s: %v", method, err)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(types.ErrRead, "%s: empty result", method)
	}
	return out, nil
}

// IsGameOpen gameStarted()
func (r *Raffle) IsGameOpen(ctx context.Context) (bool, error) {
	out, err := r.call(ctx, "gameStarted")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Owner owner()
func (r *Raffle) Owner(ctx context.Context) (string, error) {
	out, err := r.call(ctx, "owner")
	if err != nil {
		return "", err
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner.Hex(), nil
}

// GameID gameId(), id of the current or the last started game
func (r *Raffle) GameID(ctx context.Context) (string, error) {
	out, err := r.call(ctx, "gameId")
	if err != nil {
		return "", err
	}
	id := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if id == nil {
		return "", errors.Wrap(types.ErrRead, "gameId: nil result")
	}
	return id.String(), nil
}

// StartGame startGame(maxPlayers, entryFee), 需要 owner 签名
func (r *Raffle) StartGame(ctx context.Context, maxPlayers uint64, entryFee *big.Int) (*ethtypes.Receipt, error) {
	if maxPlayers == 0 || maxPlayers > math.MaxUint8 {
		return nil, errors.Wrapf(types.ErrInvalidParam, "maxPlayers %d out of range", maxPlayers)
	}
	if entryFee == nil || entryFee.Sign() < 0 {
		return nil, errors.Wrap(types.ErrInvalidParam, "entryFee")
	}
	return r.transact(ctx, nil, "startGame", uint8(maxPlayers), entryFee)
}

// JoinGame joinGame() payable, payment 必须等于 entryFee
func (r *Raffle) JoinGame(ctx context.Context, payment *big.Int) (*ethtypes.Receipt, error) {
	if payment == nil || payment.Sign() < 0 {
		return nil, errors.Wrap(types.ErrInvalidParam, "payment")
	}
	return r.transact(ctx, payment, "joinGame")
}

func (r *Raffle) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*ethtypes.Receipt, error) {
	opts, err := r.provider.Signer(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := r.provider.Reader()
	if err != nil {
		return nil, err
	}
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}
	tx, err := r.bound(backend).Transact(opts, method, params...)
	if err != nil {
		clog.Error("transact", "method", method, "err", err)
		return nil, errors.Wrapf(types.ErrTransaction, "%s: %v", method, err)
	}
	clog.Info("transaction sent", "method", method, "hash", tx.Hash().Hex())
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, errors.Wrapf(types.ErrTransaction, "%s wait %s: %v", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		clog.Error("transaction reverted", "method", method, "hash", tx.Hash().Hex())
		return receipt, errors.Wrapf(types.ErrTransaction, "%s reverted in tx %s", method, tx.Hash().Hex())
	}
	return receipt, nil
}
