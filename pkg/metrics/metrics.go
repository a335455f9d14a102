// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// xrtNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	xrtNamespace = "xrt"

	workerSubsystem = "worker"
	bridgeSubsystem = "bridge"

	outcomeLabelName = "outcome"

	// 以下为 outcome 标签的取值。
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCrash    = "crash"
	OutcomeNoResult = "no_result"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// sizeBuckets 为交接数据大小的桶划分，单位为字节。
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 12)

	WorkerInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: xrtNamespace,
			Subsystem: workerSubsystem,
			Name:      "invocations_total",
			Help:      "隔离 worker 进程调用次数，按结果分类",
		}, []string{outcomeLabelName})

	WorkerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: xrtNamespace,
			Subsystem: workerSubsystem,
			Name:      "duration_ms",
			Help:      "一次隔离调用从启动 worker 到收集结果的耗时",
			Buckets:   buckets,
		})

	BridgeExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: xrtNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "executions_total",
			Help:      "跨运行时执行次数，按结果分类",
		}, []string{outcomeLabelName})

	BridgeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: xrtNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "duration_ms",
			Help:      "一次跨运行时执行从生成程序到读取交接文件的耗时",
			Buckets:   buckets,
		})

	HandoffBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: xrtNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "handoff_bytes",
			Help:      "交接文件中 envelope 文本的字节数",
			Buckets:   sizeBuckets,
		})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(WorkerInvocations)
		r.MustRegister(WorkerDuration)
		r.MustRegister(BridgeExecutions)
		r.MustRegister(BridgeDuration)
		r.MustRegister(HandoffBytes)
		metricRegisterer = r
	})
}
