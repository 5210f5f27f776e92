// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/33cn/raffle/types"
	log15 "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, log15.LvlDebug, getLevel("debug"))
	assert.Equal(t, log15.LvlInfo, getLevel("info"))
	assert.Equal(t, log15.LvlWarn, getLevel("warn"))
	assert.Equal(t, log15.LvlError, getLevel("eror"))
	assert.Equal(t, log15.LvlError, getLevel("unknown"))
}

func TestFillDefaultValue(t *testing.T) {
	cfg := &types.Log{}
	fillDefaultValue(cfg)
	assert.Equal(t, "eror", cfg.Loglevel)
	assert.Equal(t, "eror", cfg.LogConsoleLevel)
}

func TestFileLog(t *testing.T) {
	defer Discard()
	file := filepath.Join(t.TempDir(), "logs", "raffle.log")
	SetFileLog(&types.Log{
		Loglevel:        "info",
		LogConsoleLevel: "crit",
		LogFile:         file,
		MaxFileSize:     1,
		MaxBackups:      1,
		MaxAge:          1,
	})
	l := New("module", "logtest")
	l.Info("cycle applied", "seq", 7)
	l.Debug("hidden line")

	data, err := os.ReadFile(file)
	require.Nil(t, err)
	assert.Contains(t, string(data), "cycle applied")
	assert.Contains(t, string(data), "module=logtest")
	assert.Contains(t, string(data), "seq=7")
	assert.NotContains(t, string(data), "hidden line")
}
