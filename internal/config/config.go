/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config binds the tunable constants of spec.md §6 to a
// github.com/spf13/viper instance, so they can come from flags or a
// config file, with the spec's own numbers as defaults. Environment
// variables are not read.
package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Defaults mirror spec.md §6's baseline behavior: a node started with
// no flags at all behaves exactly as the distilled spec describes.
const (
	DefaultKSucc              = 2
	DefaultNumOwners          = 2
	DefaultHeartbeatInterval  = 1000 * time.Millisecond
	DefaultExpirationDuration = 3 * time.Second
	DefaultMaintainerTick     = 500 * time.Millisecond
	DefaultTCPPortOffset      = 3
	DefaultMetricsAddr        = ":9090"
	DefaultDataDir            = "data"
	DefaultLogDir             = "logs"
)

// Options is the fully-resolved set of tunables a node runs with.
type Options struct {
	KSucc              int
	NumOwners          int
	HeartbeatInterval  time.Duration
	ExpirationDuration time.Duration
	MaintainerTick     time.Duration
	TCPPortOffset      int
	MetricsAddr        string
	DataDir            string
	LogDir             string
	LogJSON            bool
	ConfigFile         string
	Bootstrap          []string
}

// RegisterFlags attaches every tunable as a persistent flag on cmd and
// binds it into v, following the teacher's
// PersistentFlags()+BindPFlag per-key pattern
// (config/components/log/config.go).
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()

	flags.Int("k-succ", DefaultKSucc, "successor/predecessor list size")
	flags.Int("num-owners", DefaultNumOwners, "number of owners per distributed file")
	flags.Duration("heartbeat-interval", DefaultHeartbeatInterval, "interval between heartbeats sent to successors")
	flags.Duration("expiration-duration", DefaultExpirationDuration, "predecessor heartbeat staleness before it is considered failed")
	flags.Duration("maintainer-tick", DefaultMaintainerTick, "maintainer loop tick interval")
	flags.Int("tcp-port-offset", DefaultTCPPortOffset, "TCP file-transfer port, relative to the UDP gossip port")
	flags.String("metrics-addr", DefaultMetricsAddr, "address the Prometheus metrics endpoint listens on")
	flags.String("data-dir", DefaultDataDir, "root directory for locally stored distributed file content")
	flags.String("log-dir", DefaultLogDir, "directory for append-only operation logs")
	flags.Bool("log-json", false, "emit structured JSON log lines instead of the human-readable console format")
	flags.String("config", "", "path to a config file (flags still take precedence)")
	flags.StringSlice("bootstrap", nil, "list of ip:port UDP endpoints JOIN is broadcast to")

	for _, key := range []string{
		"k-succ", "num-owners", "heartbeat-interval", "expiration-duration",
		"maintainer-tick", "tcp-port-offset", "metrics-addr",
		"data-dir", "log-dir", "log-json", "config", "bootstrap",
	} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			return err
		}
	}
	return nil
}

// Load resolves Options from v, falling back to the spec.md §6
// defaults for anything unset.
func Load(v *viper.Viper) Options {
	return Options{
		KSucc:              v.GetInt("k-succ"),
		NumOwners:          v.GetInt("num-owners"),
		HeartbeatInterval:  v.GetDuration("heartbeat-interval"),
		ExpirationDuration: v.GetDuration("expiration-duration"),
		MaintainerTick:     v.GetDuration("maintainer-tick"),
		TCPPortOffset:      v.GetInt("tcp-port-offset"),
		MetricsAddr:        v.GetString("metrics-addr"),
		DataDir:            v.GetString("data-dir"),
		LogDir:             v.GetString("log-dir"),
		LogJSON:            v.GetBool("log-json"),
		ConfigFile:         v.GetString("config"),
		Bootstrap:          v.GetStringSlice("bootstrap"),
	}
}
