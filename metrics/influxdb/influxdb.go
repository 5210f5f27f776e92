// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package influxdb 定期把 go-metrics 注册表推送到 influxdb
package influxdb

import (
	"context"
	"time"

	"github.com/33cn/raffle/common/log"
	client "github.com/influxdata/influxdb/client/v2"
	"github.com/pkg/errors"
	go_metrics "github.com/rcrowley/go-metrics"
)

var ilog = log.New("module", "influxdb")

const writeTimeout = 5 * time.Second

type reporter struct {
	reg       go_metrics.Registry
	interval  time.Duration
	database  string
	namespace string
	tags      map[string]string
	client    client.Client
}

// InfluxDB pushes every metric in r each d until ctx is done
func InfluxDB(ctx context.Context, r go_metrics.Registry, d time.Duration, url, database, username, password, namespace string) error {
	rep, err := newReporter(r, d, url, database, username, password, namespace)
	if err != nil {
		return err
	}
	rep.run(ctx)
	return nil
}

func newReporter(r go_metrics.Registry, d time.Duration, url, database, username, password, namespace string) (*reporter, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     url,
		Username: username,
		Password: password,
		Timeout:  writeTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "influxdb client %s", url)
	}
	return &reporter{
		reg:       r,
		interval:  d,
		database:  database,
		namespace: namespace,
		tags:      map[string]string{},
		client:    c,
	}, nil
}

func (r *reporter) run(ctx context.Context) {
	defer r.client.Close()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.send(time.Now()); err != nil {
				ilog.Warn("unable to send to InfluxDB", "err", err)
			}
		}
	}
}

func (r *reporter) send(now time.Time) error {
	bps, err := client.NewBatchPoints(client.BatchPointsConfig{Database: r.database, Precision: "s"})
	if err != nil {
		return err
	}
	r.reg.Each(func(name string, i interface{}) {
		fields := pointFields(i)
		if fields == nil {
			return
		}
		pt, err := client.NewPoint(r.namespace+name, r.tags, fields, now)
		if err != nil {
			ilog.Debug("skip metric", "name", name, "err", err)
			return
		}
		bps.AddPoint(pt)
	})
	if len(bps.Points()) == 0 {
		return nil
	}
	return r.client.Write(bps)
}

func pointFields(i interface{}) map[string]interface{} {
	switch m := i.(type) {
	case go_metrics.Counter:
		return map[string]interface{}{"value": m.Count()}
	case go_metrics.Gauge:
		return map[string]interface{}{"value": m.Value()}
	case go_metrics.GaugeFloat64:
		return map[string]interface{}{"value": m.Value()}
	case go_metrics.Meter:
		ms := m.Snapshot()
		return map[string]interface{}{
			"count": ms.Count(),
			"m1":    ms.Rate1(),
			"mean":  ms.RateMean(),
		}
	case go_metrics.Timer:
		ms := m.Snapshot()
		ps := ms.Percentiles([]float64{0.5, 0.95, 0.99})
		return map[string]interface{}{
			"count": ms.Count(),
			"max":   ms.Max(),
			"mean":  ms.Mean(),
			"min":   ms.Min(),
			"p50":   ps[0],
			"p95":   ps[1],
			"p99":   ps[2],
			"m1":    ms.Rate1(),
		}
	}
	return nil
}
