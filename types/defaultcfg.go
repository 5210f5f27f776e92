// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

var defaultCfgString = `
title = "raffle"

[network]
# polygon mumbai
chainID = 80001
rpcAddr = "https://rpc-mumbai.maticvigil.com"
privateKey = ""

[contract]
address = ""

[indexer]
url = ""
timeout = "10s"

[poll]
period = "3s"

[log]
loglevel = "info"
logConsoleLevel = "info"
logFile = ""
maxFileSize = 300
maxBackups = 100
maxAge = 28
localTime = true
compress = true
callerFile = false
callerFunction = false

[metrics]
enable = false
duration = "1m"
# log or influxdb
dataEmitMode = "log"

[metrics.influxdb]
url = "http://127.0.0.1:8086"
database = "raffle"
username = ""
password = ""
namespace = ""

[status]
listenAddr = ""
corsOrigins = ["*"]
`
