// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/33cn/raffle/game"
	"github.com/33cn/raffle/queue"
	"github.com/33cn/raffle/rpc"
	"github.com/33cn/raffle/types"
	"github.com/spf13/cobra"
)

// WatchCmd follow the game until interrupted
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the current game and print its log",
		RunE:  watch,
	}
	cmd.Flags().String("listen", "", "serve the status endpoint on this address, overrides status.listenAddr")
	return cmd
}

func watch(cmd *cobra.Command, args []string) error {
	c, cfg, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" && cfg.Status != nil {
		listen = cfg.Status.ListenAddr
	}
	if listen != "" {
		srv := rpc.NewStatusServer(cfg.Status, c)
		addr, err := srv.Listen(listen)
		if err != nil {
			return err
		}
		defer srv.Close()
		fmt.Println("status endpoint:", "http://"+addr+"/status")
	}

	sub := c.Subscribe(queue.TopicSnapshot, queue.TopicEvent)
	defer sub.Close()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	var last []string
	for {
		select {
		case <-sig:
			return nil
		case msg, ok := <-sub.Recv():
			if !ok {
				return nil
			}
			switch data := msg.Data.(type) {
			case types.Snapshot:
				if reflect.DeepEqual(last, data.State.Log) {
					continue
				}
				last = data.State.Log
				fmt.Println("----")
				printLog(data.State.Log)
				if data.Role.IsOwner && !data.State.IsOpen {
					fmt.Println("(you are the owner, use `start` to open a new game)")
				}
			case game.Event:
				if data.Type == game.EventGameEnded {
					fmt.Printf("*** game %s won by %s ***\n", data.SessionID, data.Winner)
				}
			}
		}
	}
}

// StatusCmd print one reconciled snapshot
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the contract and the indexer once and print the game state",
		RunE:  status,
	}
	cmd.Flags().Bool("json", false, "print the full snapshot as json")
	return cmd
}

func status(cmd *cobra.Command, args []string) error {
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	snap, err := c.Refresh(commandContext(cmd))
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		printJSON(rpc.NewStatusReply(snap))
		return nil
	}
	if len(snap.State.Log) == 0 {
		fmt.Println("no game has been played yet")
	}
	printLog(snap.State.Log)
	return nil
}

// StartCmd 开启新游戏, 仅 owner 可用
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new game (contract owner only)",
		RunE:  startGame,
	}
	cmd.Flags().Uint64P("max", "m", 0, "maximum number of players, 1-255")
	cmd.Flags().StringP("fee", "f", "", "entry fee in coins, e.g. 0.01")
	cmd.MarkFlagRequired("max")
	cmd.MarkFlagRequired("fee")
	return cmd
}

func startGame(cmd *cobra.Command, args []string) error {
	maxPlayers, _ := cmd.Flags().GetUint64("max")
	fee, _ := cmd.Flags().GetString("fee")
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	receipt, err := c.StartGame(commandContext(cmd), maxPlayers, fee)
	if err != nil {
		return err
	}
	fmt.Println("tx:", receipt.TxHash.Hex())
	printLog(c.State().State.Log)
	return nil
}

// JoinCmd 支付 entryFee 加入当前游戏
func JoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Join the current game paying its entry fee",
		RunE:  joinGame,
	}
}

func joinGame(cmd *cobra.Command, args []string) error {
	c, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	receipt, err := c.JoinGame(commandContext(cmd))
	if err != nil {
		return err
	}
	fmt.Println("tx:", receipt.TxHash.Hex())
	printLog(c.State().State.Log)
	return nil
}

// ConfigCmd print the default configuration
func ConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(types.GetDefaultCfgstring())
		},
	}
}
