// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands raffle 命令行的各个子命令
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/33cn/raffle/client"
	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/types"
	"github.com/33cn/raffle/wallet"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// EnvPrivateKey 私钥不写进配置文件时, 从环境变量或者 .env 中读取
const EnvPrivateKey = "RAFFLE_PRIVATE_KEY"

// LoadConfig reads --conf (defaults when empty) and applies the persistent flag overrides
func LoadConfig(cmd *cobra.Command) (*types.Config, error) {
	path, _ := cmd.Flags().GetString("conf")
	var (
		cfg *types.Config
		err error
	)
	if path == "" {
		cfg, err = types.InitCfgString(types.GetDefaultCfgstring())
	} else {
		cfg, err = types.InitCfg(path)
	}
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("rpc_laddr"); v != "" {
		cfg.Network.RPCAddr = v
	}
	if v, _ := cmd.Flags().GetString("contract"); v != "" {
		cfg.Contract.Address = v
	}
	if v, _ := cmd.Flags().GetString("indexer"); v != "" {
		cfg.Indexer.URL = v
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if v := os.Getenv(EnvPrivateKey); v != "" {
		cfg.Network.PrivateKey = v
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient 根据配置创建客户端并连接钱包
func newClient(cmd *cobra.Command) (*client.Client, *types.Config, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log.SetFileLog(cfg.Log)
	watch, _ := cmd.Flags().GetString("addr")
	connector := &wallet.KeyConnector{
		RPCAddr:    cfg.Network.RPCAddr,
		PrivateKey: cfg.Network.PrivateKey,
		Address:    watch,
	}
	c, err := client.New(cfg, connector)
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.Connect(commandContext(cmd)); err != nil {
		c.Close()
		return nil, nil, err
	}
	return c, cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(data))
}

func printLog(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}
