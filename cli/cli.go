// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli raffle 命令行入口
package cli

import (
	"fmt"
	"os"

	"github.com/33cn/raffle/cli/commands"
	"github.com/33cn/raffle/common/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "raffle",
	Short:         "raffle game client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("conf", "", "config file, defaults are used when empty")
	rootCmd.PersistentFlags().String("rpc_laddr", "", "node json-rpc url, overrides network.rpcAddr")
	rootCmd.PersistentFlags().String("contract", "", "raffle contract address, overrides contract.address")
	rootCmd.PersistentFlags().String("indexer", "", "subgraph url, overrides indexer.url")
	rootCmd.PersistentFlags().String("addr", "", "account to watch when no private key is configured")
	rootCmd.AddCommand(
		commands.WatchCmd(),
		commands.StatusCmd(),
		commands.StartCmd(),
		commands.JoinCmd(),
		commands.ConfigCmd(),
	)
}

// Run :
func Run() {
	log.SetLogLevel("error")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
