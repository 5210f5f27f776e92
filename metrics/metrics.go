// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics 轮询周期相关的统计
package metrics

import (
	"context"
	"time"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/metrics/influxdb"
	"github.com/33cn/raffle/types"
	go_metrics "github.com/rcrowley/go-metrics"
)

var mlog = log.New("module", "raffle metrics")

// Namespace metric name prefix
var Namespace = "raffle"

// Cycle counters of the polling scheduler
type Cycle struct {
	Issued  go_metrics.Counter
	Applied go_metrics.Counter
	Stale   go_metrics.Counter
	Failed  go_metrics.Counter
	Latency go_metrics.Timer
}

// NewCycle registers the cycle metrics in r, go_metrics.DefaultRegistry when r is nil
func NewCycle(r go_metrics.Registry) *Cycle {
	if r == nil {
		r = go_metrics.DefaultRegistry
	}
	return &Cycle{
		Issued:  go_metrics.GetOrRegisterCounter(Namespace+".cycle.issued", r),
		Applied: go_metrics.GetOrRegisterCounter(Namespace+".cycle.applied", r),
		Stale:   go_metrics.GetOrRegisterCounter(Namespace+".cycle.stale", r),
		Failed:  go_metrics.GetOrRegisterCounter(Namespace+".cycle.failed", r),
		Latency: go_metrics.GetOrRegisterTimer(Namespace+".cycle.latency", r),
	}
}

// StartMetrics 根据配置文件相关参数启动, ctx 取消后停止输出
func StartMetrics(ctx context.Context, cfg *types.Config, r go_metrics.Registry) {
	metrics := cfg.Metrics
	if metrics == nil || !metrics.Enable {
		mlog.Info("Metrics data is not enabled to emit")
		return
	}
	if r == nil {
		r = go_metrics.DefaultRegistry
	}

	switch metrics.DataEmitMode {
	case "", types.MetricsEmitLog:
		go emit(ctx, r, cfg.MetricsDuration())
	case types.MetricsEmitInfluxDB:
		sub := metrics.InfluxDB
		if sub == nil {
			mlog.Error("nil parameter for influxdb")
			return
		}
		mlog.Info("StartMetrics with influxdb", "duration", cfg.MetricsDuration(), "url", sub.URL,
			"database", sub.Database, "username", sub.Username, "namespace", sub.Namespace)
		go func() {
			err := influxdb.InfluxDB(ctx, r, cfg.MetricsDuration(), sub.URL, sub.Database, sub.Username, sub.Password, sub.Namespace)
			if err != nil {
				mlog.Error("StartMetrics", "err", err)
			}
		}()
	default:
		mlog.Error("startMetrics", "The dataEmitMode set is not supported now ", metrics.DataEmitMode)
	}
}

func emit(ctx context.Context, r go_metrics.Registry, freq time.Duration) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Report(r)
		}
	}
}

// Report 把当前统计写入日志
func Report(r go_metrics.Registry) {
	r.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case go_metrics.Counter:
			mlog.Info("metrics", "name", name, "count", m.Count())
		case go_metrics.Timer:
			t := m.Snapshot()
			mlog.Info("metrics", "name", name, "count", t.Count(),
				"mean", time.Duration(t.Mean()), "p95", time.Duration(t.Percentile(0.95)), "max", time.Duration(t.Max()))
		}
	})
}
